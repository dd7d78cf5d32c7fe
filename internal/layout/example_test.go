package layout_test

import (
	"fmt"

	"calview/internal/layout"
)

func ExampleCompute() {
	events := []layout.TimedEvent{
		{ID: "standup", StartMinutes: 540, EndMinutes: 600},
		{ID: "review", StartMinutes: 570, EndMinutes: 630},
		{ID: "lunch", StartMinutes: 600, EndMinutes: 660},
	}

	for _, a := range layout.Compute(events) {
		left, width := layout.Box(a, 0)
		fmt.Printf("%s col=%d/%d left=%.0f%% width=%.0f%%\n", a.EventID, a.ColumnIndex, a.ColumnCount, left, width)
	}
	// Output:
	// standup col=0/2 left=0% width=50%
	// review col=1/2 left=50% width=50%
	// lunch col=0/2 left=0% width=50%
}
