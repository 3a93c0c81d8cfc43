// Package simulator is the arm-side transport used by the reach driver.
//
// [Interface] is what the driver talks to: connect, poll joint feedback,
// send joint forces, move named visual markers, disconnect. [Local] is an
// in-process implementation that integrates a [dynamo.System] by one fixed
// tick for every force command, the way a synchronous-mode simulator
// advances one physics step per trigger.
package simulator
