package efficiency

import (
	"fmt"

	"kilowatch/internal/energy"
)

const timeLayout = "2006-01-02 15:04"

func outageAlertDescription(record energy.ConsumptionRecord, outage energy.Outage) string {
	end := "ongoing"
	if !outage.Ongoing() {
		end = outage.EndTime.Format(timeLayout)
	}
	return fmt.Sprintf("%.2f kWh on %s (%s) during an outage (start: %s, end: %s)",
		record.EnergyKWh, record.EquipmentName, outage.BuildingName,
		outage.StartTime.Format(timeLayout), end)
}
