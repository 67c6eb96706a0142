// Package statsview runs a local HTTP server with runtime statistics.
//
// After launch, graphs are viewable at
//
//	<address>/debug/statsview
//
// and the standard pprof pages at <address>/debug/pprof/.
package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// DefaultAddress is used when Launch is given an empty address
const DefaultAddress = "localhost:12600"

const url = "/debug/statsview"

// Launch starts the stats server in a new goroutine and reports its URL
func Launch(address string, output io.Writer) {
	if address == "" {
		address = DefaultAddress
	}
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(address))
		mgr := statsview.New()
		mgr.Start()
	}()

	fmt.Fprintf(output, "stats server available at %s%s\n", address, url)
}
