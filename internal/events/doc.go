// Package events provides the in-process publish/subscribe bus that
// connects UI actions to the task service and broadcasts domain events
// after successful mutations.
//
// Events are keyed by string names following the SCOPE.DOMAIN.ACTION
// convention (TASK.MANAGER.CREATE, UI.TASK.DELETE, ...). Publishing is
// batched by default with a short auto-flush delay; PublishImmediate and
// the Immediate bus option bypass batching for callers that need strict
// ordering or synchronous delivery.
package events
