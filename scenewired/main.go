package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/golang/glog"

	"github.com/scenewire/scenewire/scenewire"
)

const ScenewiredVersion = "0.1.0"

func main() {
	usage := `Scene sync daemon.

Serves a demo scene document over websocket and animates it, so subscribers
see a full sync on join and incremental updates on every tick.

Usage:
    scenewired serve [--config=<config>] [--host=<host>] [--port=<port>]

Options:
    -h --help            Show this screen.
    --version            Show version.
    --config=<config>    Yaml config file.
    --host=<host>        Listen host.
    -p --port=<port>     Listen port.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], ScenewiredVersion)
	if err != nil {
		panic(err)
	}

	flag.Set("logtostderr", "true")
	flag.CommandLine.Parse([]string{})

	if serve_, _ := opts.Bool("serve"); serve_ {
		serve(opts)
	} else {
		docopt.PrintHelpAndExit(nil, usage)
	}
}

func serve(opts docopt.Opts) {
	settings := scenewire.DefaultServerSettings()

	if configPath, err := opts.String("--config"); err == nil && configPath != "" {
		config, err := LoadConfig(configPath)
		if err != nil {
			glog.Errorf("[main]config error = %s\n", err)
			os.Exit(1)
		}
		if err := config.ApplyTo(settings); err != nil {
			glog.Errorf("[main]config error = %s\n", err)
			os.Exit(1)
		}
	}
	if host, err := opts.String("--host"); err == nil && host != "" {
		settings.Host = host
	}
	if port, err := opts.String("--port"); err == nil && port != "" {
		portNumber, err := strconv.Atoi(port)
		if err != nil {
			glog.Errorf("[main]bad port = %s\n", port)
			os.Exit(1)
		}
		settings.Port = portNumber
	}

	if !settings.AutoStart {
		glog.Infof("[main]auto_start is disabled in the config\n")
		os.Exit(1)
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doc := demoDocument()
	server := scenewire.NewServer(doc, settings)
	if err := server.Start(cancelCtx); err != nil {
		glog.Errorf("[main]start error = %s\n", err)
		os.Exit(1)
	}

	go animate(cancelCtx, server)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if err := server.Stop(); err != nil {
		glog.Errorf("[main]stop error = %s\n", err)
	}
}

// demoDocument is a minimal startup document: a cube, a point lamp, and a
// camera in one scene.
func demoDocument() *scenewire.Document {
	doc := scenewire.NewDocument()
	doc.Version = [3]int{0, 1, 0}
	doc.VersionString = "0.1.0"
	doc.FilePath = "demo.scene"

	doc.Cameras.Put("Camera", &scenewire.Camera{Angle: 0.8575})
	doc.Lamps.Put("Lamp", &scenewire.Lamp{
		Kind:   scenewire.LampPoint,
		Color:  scenewire.Color{1, 1, 1},
		Energy: 1,
	})
	doc.Objects.Put("Cube", &scenewire.Object{
		RotationMode: scenewire.RotationModeEuler,
		Scale:        scenewire.Vector{1, 1, 1},
		Type:         "MESH",
		Data:         "Cube",
	})
	doc.Objects.Put("Lamp", &scenewire.Object{
		Location:     scenewire.Vector{4.5, -4.2, 6},
		RotationMode: scenewire.RotationModeEuler,
		Scale:        scenewire.Vector{1, 1, 1},
		Type:         "LAMP",
		Data:         "Lamp",
	})
	doc.Objects.Put("Camera", &scenewire.Object{
		Location:      scenewire.Vector{7.5, -6.5, 5.3},
		RotationMode:  scenewire.RotationModeEuler,
		RotationEuler: scenewire.Euler{1.11, 0, 0.81},
		Scale:         scenewire.Vector{1, 1, 1},
		Type:          "CAMERA",
		Data:          "Camera",
	})
	doc.Scenes.Put("Scene", &scenewire.Scene{
		ActiveObject: "Cube",
		Camera:       "Camera",
		FPS:          24,
		FPSBase:      1,
		FrameCurrent: 1,
		FrameStart:   1,
		FrameEnd:     250,
		Gravity:      scenewire.Vector{0, 0, -9.81},
		Objects:      []string{"Camera", "Cube", "Lamp"},
	})
	return doc
}

// animate spins the cube and advances the scene frame so subscribers have
// something to watch.
func animate(ctx context.Context, server *scenewire.Server) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			server.Update(func(doc *scenewire.Document) {
				if cube, ok := doc.Objects.Get("Cube"); ok {
					cube.RotationEuler[2] += 0.02
					doc.Objects.MarkDirty("Cube")
				}
				if scene, ok := doc.Scenes.Get("Scene"); ok {
					scene.FrameCurrent += 1
					if scene.FrameEnd < scene.FrameCurrent {
						scene.FrameCurrent = scene.FrameStart
					}
				}
			})
			server.Tick()
		}
	}
}
