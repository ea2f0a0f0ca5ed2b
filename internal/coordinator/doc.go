// Package coordinator keeps a periodically refreshed snapshot of one
// device resource, such as the state or the configuration of a dingz.
//
// # Refresh Cycles
//
// A Coordinator runs at most one fetch at a time and queues at most one
// more. A refresh requested while idle starts a fetch immediately. Every
// request made while a fetch is in flight joins the single queued cycle,
// which starts as soon as the in-flight one finishes. Callers wait for the
// cycle they joined and receive its error.
//
// The fetch itself is detached from the caller's context: cancelling ctx
// stops the wait, never the fetch, so a snapshot is never half-applied.
//
// # Failure Handling
//
// A failed cycle keeps the previous snapshot and records the error in
// Status. Only FirstRefresh turns a failure into a startup error.
//
// # Usage
//
//	c := coordinator.New(client.GetState, coordinator.Options{
//	    Name:     "state",
//	    Device:   "hallway",
//	    Interval: 30 * time.Second,
//	})
//	if err := c.FirstRefresh(ctx); err != nil {
//	    return err
//	}
//	go c.Run(ctx)
package coordinator
