package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	geojson "github.com/paulmach/go.geojson"

	cluster "github.com/MadAppGang/animcluster"
	"github.com/MadAppGang/animcluster/internal/logger"
	"github.com/MadAppGang/animcluster/internal/timeutil"
	"github.com/MadAppGang/animcluster/internal/tween"
)

type step struct {
	Region    cluster.Region         `json:"region"`
	ZoomingIn bool                   `json:"zoomingIn"`
	Clusters  int                    `json:"clusters"`
	Kinds     map[cluster.Change]int `json:"kinds"`
	Commands  map[string]int         `json:"commands"`
	Largest   []string               `json:"largest"`
}

func importData(filename string) ([]*geojson.Feature, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fc, err := cluster.ReadFeatureCollection(f)
	if err != nil {
		return nil, err
	}
	return fc.Features, nil
}

func main() {
	data := flag.String("data", "./testdata/places.json", "GeoJSON feature collection of points")
	height := flag.Float64("height", 800, "viewport height in pixels")
	steps := flag.Int("steps", 4, "zoom steps in each direction")
	factor := flag.Float64("factor", 2, "zoom factor per step")
	flag.Parse()

	log := logger.Setup()

	places, err := importData(*data)
	if err != nil {
		log.Error("import failed", "path", *data, "error", err)
		os.Exit(1)
	}

	clock := timeutil.NewMockClock(time.Now())
	v := cluster.NewView(tween.NewSurface(clock), cluster.DefaultOptions())
	v.Clock = clock
	v.Logger = log
	v.SetViewportHeight(*height)
	v.SetDevice(cluster.Device{Width: *height * 0.75, Height: *height})
	if err := v.SetMarkers(cluster.GeoPoints(places)); err != nil {
		log.Error("markers rejected", "error", err)
		os.Exit(1)
	}

	region, err := v.FitRegion()
	if err != nil {
		log.Error("no region", "error", err)
		os.Exit(1)
	}

	// zoom in step by step, then back out
	regions := []cluster.Region{region}
	for i := 0; i < *steps; i++ {
		region.LatDelta /= *factor
		region.LonDelta /= *factor
		regions = append(regions, region)
	}
	for i := 0; i < *steps; i++ {
		region.LatDelta *= *factor
		region.LonDelta *= *factor
		regions = append(regions, region)
	}

	markers := cluster.Markers(places)
	var result []step
	for _, r := range regions {
		plan, err := v.RegionChanged(r)
		if err != nil {
			log.Error("pass failed", "error", err)
			os.Exit(1)
		}
		clock.Advance(v.Options.MoveDuration)
		v.SettleIfDue()
		result = append(result, summarize(plan, markers))
	}

	resultJSON, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(resultJSON))
}

func summarize(plan cluster.Plan, places []cluster.Marker) step {
	s := step{
		Region:    plan.Region,
		ZoomingIn: plan.ZoomingIn,
		Clusters:  len(plan.Current),
		Kinds:     map[cluster.Change]int{},
		Commands:  map[string]int{},
	}
	for _, k := range plan.Kinds {
		s.Kinds[k]++
	}
	for _, c := range plan.Commands {
		s.Commands[c.Kind.String()]++
	}

	largest := -1
	for i, c := range plan.Current {
		if largest < 0 || len(c.Points) > len(plan.Current[largest].Points) {
			largest = i
		}
	}
	if largest >= 0 {
		for _, idx := range plan.Current[largest].Points {
			s.Largest = append(s.Largest, places[idx].Name())
		}
	}
	return s
}
