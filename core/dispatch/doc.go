// Package dispatch provides execution contexts for work that must not run on the caller's
// goroutine.
//
// A Loop is a single goroutine that runs submitted functions one after another in
// submission order, the way a UI thread or render loop would. Submitting never blocks and
// never runs the work inline, so a function can safely schedule follow-up work from inside
// the loop.
//
// # Usage
//
//	loop := dispatch.NewLoop("render", logger)
//	defer loop.Close(ctx)
//
//	loop.Run(func() { draw() })
//	_ = loop.Sync(ctx, func() { snapshot = read() })
//	_ = loop.Idle(ctx)
package dispatch
