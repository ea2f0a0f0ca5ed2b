// Package entity provides per-component views of a dingz: dimmers, covers,
// motion sensors, buttons, scalar sensors, the front LED, the thermostat and
// DALI/DMX channels.
//
// A view keeps the latest known values of one component. It is fed from two
// sources: every new State snapshot (ApplyState) and every push
// notification (HandleNotification). Whichever arrives last wins, field by
// field. A notification for another component or of another type leaves the
// view unchanged.
//
// Commanding views (Dimmer, Cover, Motion, FrontLED, Thermostat, DDI) send
// the command through the device client and return once the device accepted
// it. A delayed state refresh follows in the background.
//
//	views := entity.Discover(dev)
//	unbind := entity.BindAll(views, dev)
//	defer unbind()
package entity
