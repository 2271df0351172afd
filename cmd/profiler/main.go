package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"web/rentmap/cluster"
	"web/rentmap/viewport"
)

var (
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile  = flag.String("memprofile", "", "write memory profile to file")
	heapprofile = flag.String("heapprofile", "", "write heap profile to file")
	numPins     = flag.Int("pins", 10000, "number of pins to generate")
	zoomLevel   = flag.Int("zoom", 8, "zoom level to profile")
	strategy    = flag.String("strategy", "greedy", "clustering strategy: greedy or connected")
	seed        = flag.Int64("seed", 42, "random seed for generated pins")
	testall     = flag.Bool("testall", false, "test all configurations")
)

type result struct {
	duration time.Duration
	allocMB  float64
	gcRuns   uint32
	groups   int
	visible  int
}

func profileRender(pins cluster.PinSet, zoom int, st cluster.Strategy) result {
	opts := cluster.DefaultOptions()
	opts.Strategy = st
	engine := cluster.NewEngine(pins, opts)
	vs := viewport.State{Zoom: zoom, Center: viewport.Point{X: 50, Y: 50}}

	var memStatsBefore, memStatsAfter runtime.MemStats
	runtime.ReadMemStats(&memStatsBefore)

	start := time.Now()
	p := engine.Render(vs)
	duration := time.Since(start)

	runtime.ReadMemStats(&memStatsAfter)
	return result{
		duration: duration,
		allocMB:  float64(memStatsAfter.TotalAlloc-memStatsBefore.TotalAlloc) / 1024 / 1024,
		gcRuns:   memStatsAfter.NumGC - memStatsBefore.NumGC,
		groups:   len(p.Groups),
		visible:  p.Visible,
	}
}

func runSingleProfile(n, zoom int, st cluster.Strategy) {
	fmt.Printf("Profiling %d pins at zoom %d with %s clustering\n", n, zoom, st)
	pins := cluster.GeneratePins(n, *seed)

	r := profileRender(pins, zoom, st)
	fmt.Printf("Render completed in %v\n", r.duration)
	fmt.Printf("Visible pins: %d, groups: %d\n", r.visible, r.groups)
	fmt.Printf("Memory allocated: %.2f MB\n", r.allocMB)
}

func runProfileBattery() {
	pinCounts := []int{100, 1000, 5000, 20000}
	zoomLevels := []int{8, 10, 12, 13, 16}
	strategies := []cluster.Strategy{cluster.StrategyGreedy, cluster.StrategyConnected}

	fmt.Println("Running comprehensive profile battery...")
	fmt.Println("=======================================")

	fmt.Printf("%-8s | %-5s | %-10s | %-15s | %-8s | %-11s | %-7s\n",
		"Pins", "Zoom", "Strategy", "Duration", "Groups", "Memory (MB)", "GC Runs")
	fmt.Printf("%s\n", "-------------------------------------------------------------------------------")

	for _, n := range pinCounts {
		pins := cluster.GeneratePins(n, *seed)
		for _, zoom := range zoomLevels {
			for _, st := range strategies {
				r := profileRender(pins, zoom, st)
				fmt.Printf("%-8d | %-5d | %-10s | %-15s | %-8d | %-11.2f | %-7d\n",
					n, zoom, st, r.duration, r.groups, r.allocMB, r.gcRuns)
			}
		}
		fmt.Printf("%s\n", "-------------------------------------------------------------------------------")
	}
}

func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			return
		}
		defer f.Close()

		fmt.Println("Starting CPU profiling...")
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			return
		}
		defer pprof.StopCPUProfile()
	}

	if *testall {
		runProfileBattery()
	} else {
		runSingleProfile(*numPins, *zoomLevel, cluster.ParseStrategy(*strategy))
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %v\n", err)
			return
		}
		defer f.Close()
		runtime.GC() // Get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write memory profile: %v\n", err)
		}
	}

	if *heapprofile != "" {
		f, err := os.Create(*heapprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create heap profile: %v\n", err)
			return
		}
		defer f.Close()

		memProfile := pprof.Lookup("heap")
		if memProfile == nil {
			fmt.Fprintf(os.Stderr, "Could not find heap profile\n")
			return
		}

		if err := memProfile.WriteTo(f, 0); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write heap profile: %v\n", err)
		}
	}
}
