// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamx

// An Event identifies the event type when installing or running a
// Handler. Install event handlers on a Request between New and Send to
// observe and extend the exchange.
type Event int

const (
	// Started identifies the event that occurs when the request
	// lifecycle begins the exchange, after configuration is frozen and
	// immediately before the transport is asked to open.
	//
	// When Started fires, the exchange's Method, URL, and Host fields
	// are set and will not change.
	Started Event = iota
	// Socket identifies the event that occurs when a connection has
	// been acquired from the connection agent, either freshly dialed
	// or reused from the idle pool.
	//
	// Socket fires again if the lifecycle recovers from a failure on
	// a reused connection by acquiring a fresh one; in that case the
	// exchange's Attempt field is 1.
	Socket
	// Response identifies the event that occurs when response headers
	// have been received and the redirect policy has declined to
	// handle the response.
	//
	// When Response fires, the exchange's Response field is set. If a
	// redirect policy reports that it is handling the response,
	// Response never fires for the exchange.
	Response
	// Data identifies the event that occurs for each chunk of
	// response body data, after transparent decoding when decoding is
	// enabled.
	//
	// When Data fires, the exchange's Chunk field holds the chunk.
	// The chunk is only valid during the handler call; handlers that
	// need to retain it must copy it.
	Data
	// End identifies the event that occurs when the response body has
	// been fully delivered. End fires exactly once for every exchange
	// that receives a response body, including an empty one.
	End
	// Complete identifies the event that occurs after End on an
	// exchange that finished without an error and was not aborted.
	Complete
	// Closed identifies the event that occurs when the underlying
	// stream has been closed and the exchange is over.
	Closed
	// Aborted identifies the event that occurs when Abort is called.
	// It fires exactly once no matter how many times Abort is called,
	// and it is the only event that can fire after abort, other than
	// a Failed event already in flight.
	Aborted
	// Failed identifies the event that occurs when an error surfaces
	// from the exchange: an invalid configuration, a transport
	// failure that was not recovered, or a collaborator failure.
	//
	// When Failed fires, the exchange's Err field is set. Cookie jar
	// failures fire Failed without ending the exchange; every other
	// failure is terminal.
	Failed
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events typed as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"Started",
	"Socket",
	"Response",
	"Data",
	"End",
	"Complete",
	"Closed",
	"Aborted",
	"Failed",
}

// Events returns a slice containing all events which can occur during
// a streamx exchange, in the order in which they would occur on a
// successful exchange, with the exceptional events last.
func Events() []Event {
	return []Event{
		Started,
		Socket,
		Response,
		Data,
		End,
		Complete,
		Closed,
		Aborted,
		Failed,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
