// Package dingz implements the HTTP client for the local REST API of an
// iolo dingz controller.
//
// The device runs a small embedded web server that cannot service
// back-to-back requests, so every request made through a Client passes a
// single per-device gate with a trailing throttle. Reads and writes are
// retried with separate fixed-delay policies.
//
// # Usage
//
//	c, err := dingz.NewClient("http://10.0.3.39")
//	if err != nil {
//	    return err
//	}
//	state, err := c.GetState(ctx)
//	if err != nil {
//	    return err // wraps dingz.ErrRequestFailed
//	}
//
// # Response Types
//
// Every response is decoded into an explicit struct. Optional fields are
// pointers and are nil when the firmware omits them. Unknown keys are
// ignored so newer firmware does not break older clients.
//
// The PIR block of the state payload changed shape between firmware
// generations. StateSensors.PIRs normalises both shapes; PIRShape reports
// which one was seen.
//
// # Thread Safety
//
// Client is safe for concurrent use. Concurrent requests are serialised on
// the wire in gate acquisition order.
package dingz
