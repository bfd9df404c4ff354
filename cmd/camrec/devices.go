package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/camrec/camrec/pkg/driver"
	_ "github.com/camrec/camrec/pkg/driver/camera"
	_ "github.com/camrec/camrec/pkg/driver/videotest"
	"github.com/camrec/camrec/pkg/prop"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List video sources and the modes they offer",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listDevices(cmd.OutOrStdout(), driver.GetManager())
	},
}

func listDevices(w io.Writer, m *driver.Manager) {
	drivers := m.Query(driver.FilterVideoRecorder())
	if len(drivers) == 0 {
		fmt.Fprintln(w, "No video devices found.")
		return
	}

	fmt.Fprintf(w, "Found %d video device(s):\n", len(drivers))
	for i, d := range drivers {
		info := d.Info()
		fmt.Fprintf(w, "  %d. %s [%s] %s\n", i+1, info.Label, info.DeviceType, info.Name)
		if modes := describeModes(d); len(modes) > 0 {
			fmt.Fprintf(w, "     %s\n", strings.Join(modes, ", "))
		}
	}
}

// describeModes opens d if needed and lists its distinct modes.
func describeModes(d driver.Driver) []string {
	if d.Status() == driver.StateClosed {
		if err := d.Open(); err != nil {
			return []string{"unavailable: " + err.Error()}
		}
		defer d.Close()
	}
	return lo.Uniq(lo.Map(d.Properties(), func(p prop.Media, _ int) string {
		return p.Video.String()
	}))
}
