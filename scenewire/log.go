package scenewire

// Logging convention in the `scenewire` package:
// Info:
//     essential events for abnormal behavior. This level should be silent on
//     normal operation, with the exception of one time (infrequent)
//     initialization data that is useful for monitoring
//     this includes:
//     - listener start/stop
//     - subscriber evictions after delivery failures
// Warning:
//     unexpected panics even if handled and suppressed for partial operation
// V(1):
//     per-connection lifecycle (join, leave, read errors)
// V(2):
//     frequent events - per-tick changeset summaries, dropped commands,
//     per-message sends. Filterable by the [tag] prefix.
