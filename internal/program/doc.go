// Package program composes device commands into execution graphs and runs
// them.
//
// # Combinators
//
// A Unit is a single-use node of an execution graph. Leaves send one
// command (Send) or run an arbitrary function (Do); groups run their
// children in order (Sequence) or all at once (Parallel). Groups nest
// freely.
//
//	wake := program.Sequence(
//	    program.Send(svc, dispatch.NewMessage(light, device.KindSwitchOn, nil)),
//	    program.Parallel(
//	        program.Send(svc, dispatch.NewMessage(speaker, device.KindSwitchOn, nil)),
//	        program.Send(svc, dispatch.NewMessage(speaker, device.KindPlayTrack,
//	            device.Track("Rick Astley - Never Gonna Give You Up"))),
//	    ),
//	)
//	err := wake.Run(ctx)
//
// Every node moves pending → running → completed | failed exactly once.
//
//   - Sequence starts child i+1 only after child i finished. The first
//     failure stops it; later children stay pending and the failure is
//     returned unchanged.
//   - Parallel starts every child, waits for all of them without
//     cancelling siblings, and returns the first failure to complete.
//     Other failures remain visible on the failed children (see Failures).
//
// Nothing here introduces timeouts or cancellation; the caller's context
// is passed through to the devices untouched.
//
// # Programs
//
// Library holds named programs declared in YAML. Engine compiles a
// program against live device identities, runs it, and records an
// Execution through a Repository.
package program
