package bridge

import (
	"github.com/nerrad567/dingz-bridge/internal/infrastructure/mqtt"
)

// Topic categories, one per subscription pattern.
const (
	CategoryOnline = "online"
	CategoryPIR    = "pir"
	CategoryButton = "button"
	CategoryMotor  = "motor"
	CategorySensor = "sensor"
	CategoryLight  = "light"
)

// categories lists every category in subscription order.
var categories = []string{
	CategoryOnline,
	CategoryPIR,
	CategoryButton,
	CategoryMotor,
	CategorySensor,
	CategoryLight,
}

// Topics returns the subscription pattern for every category of device id.
func Topics(id string) map[string]string {
	t := mqtt.Topics{}
	return map[string]string{
		CategoryOnline: t.DeviceOnline(id),
		CategoryPIR:    t.DevicePIR(id),
		CategoryButton: t.DeviceButton(id),
		CategoryMotor:  t.DeviceMotor(id),
		CategorySensor: t.DeviceSensor(id),
		CategoryLight:  t.DeviceLight(id),
	}
}
