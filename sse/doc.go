// Package sse serves pipeline streams to HTTP clients as Server-Sent Events.
//
// Every client gets its own subscription and pulls one value at a time: the
// next value is requested only after the previous event has been written and
// flushed, so a slow client slows its own stream instead of losing events.
//
//	hub := sse.NewHub()
//	engine.GET("/stream", func(c *gin.Context) {
//		sse.Serve(hub, c.Writer, c.Request, stream)
//	})
//
// Hub tracks the connected clients and is a lifecycle component; stopping it
// ends every open stream.
package sse
