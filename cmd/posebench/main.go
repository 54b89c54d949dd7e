// Command posebench sweeps a synthetic marker through a grid of camera
// distances and yaw angles, runs every rendered frame through the full
// detection pipeline, and reports how detection rate and pose accuracy
// hold up. Per-trial results stream to stdout as CSV, plots and an HTML
// report land in the output directory, and runs can optionally be
// recorded to SQLite for comparison across tuning changes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/parallax-data/fiducial/internal/config"
	"github.com/parallax-data/fiducial/internal/fiducial"
	"github.com/parallax-data/fiducial/internal/fiducial/dict"
	"github.com/parallax-data/fiducial/internal/fiducial/storage/sqlite"
	"github.com/parallax-data/fiducial/internal/version"
)

// trial is one rendered pose pushed through the detector. Errors are
// meaningful only when Detected is true.
type trial struct {
	Distance float64
	YawDeg   float64
	Detected bool
	PosErr   float64
	RotErr   float64
}

// benchSummary aggregates a whole sweep. Mean errors cover detected
// trials only.
type benchSummary struct {
	Trials     int
	Detected   int
	HitRate    float64
	MeanPosErr float64
	MeanRotErr float64
}

// distanceStat aggregates the trials at one camera distance.
type distanceStat struct {
	Distance   float64
	Trials     int
	Detected   int
	HitRate    float64
	MeanPosErr float64
	MeanRotErr float64
}

type sweepConfig struct {
	dict      *dict.Dictionary
	family    int
	markerID  int
	size      float64
	width     int
	height    int
	focal     [2]float64
	principal [2]float64
}

func main() {
	family := flag.Int("dict", 0, "predefined dictionary family (0-15)")
	id := flag.Int("id", 7, "marker id to render")
	size := flag.Float64("size", 0.1, "marker side length in metres")
	distances := flag.String("distances", "0.5,0.75,1.0,1.5,2.0", "comma-separated camera distances in metres")
	yaws := flag.String("yaws", "0,15,30,45", "comma-separated yaw angles in degrees")
	width := flag.Int("width", 640, "frame width in pixels")
	height := flag.Int("height", 480, "frame height in pixels")
	focal := flag.Float64("focal", 600, "focal length in pixels")
	outDir := flag.String("out", "bench-report", "directory for plots and the HTML report")
	dbPath := flag.String("db", "", "optional SQLite file to record the run")
	tuningPath := flag.String("tuning", "", "optional tuning JSON overriding detector defaults")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("posebench %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	dists, err := parseFloatList(*distances)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -distances: %v\n", err)
		os.Exit(1)
	}
	yawList, err := parseFloatList(*yaws)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -yaws: %v\n", err)
		os.Exit(1)
	}

	params := fiducial.DefaultDetectorParams()
	if *tuningPath != "" {
		tc, err := config.LoadTuningConfig(*tuningPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load tuning: %v\n", err)
			os.Exit(1)
		}
		params = fiducial.DetectorParamsFromTuning(tc)
		log.Printf("tuning overrides loaded from %s", *tuningPath)
	}
	det, err := fiducial.NewDetector(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "detector: %v\n", err)
		os.Exit(1)
	}
	d, err := dict.Predefined(dict.Family(*family))
	if err != nil {
		fmt.Fprintf(os.Stderr, "dictionary: %v\n", err)
		os.Exit(1)
	}

	cfg := sweepConfig{
		dict:      d,
		family:    *family,
		markerID:  *id,
		size:      *size,
		width:     *width,
		height:    *height,
		focal:     [2]float64{*focal, *focal},
		principal: [2]float64{float64(*width) / 2, float64(*height) / 2},
	}
	trials, err := runSweep(det, cfg, dists, yawList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sweep: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("distance,yaw_deg,detected,position_error,rotation_error")
	for _, tr := range trials {
		detected := 0
		if tr.Detected {
			detected = 1
		}
		fmt.Printf("%g,%g,%d,%.6f,%.6f\n", tr.Distance, tr.YawDeg, detected, tr.PosErr, tr.RotErr)
	}

	sum := summarize(trials)
	log.Printf("%d/%d detected (%.1f%%), mean position error %.4f m, mean rotation error %.4f rad",
		sum.Detected, sum.Trials, 100*sum.HitRate, sum.MeanPosErr, sum.MeanRotErr)

	if err := writeReport(*outDir, d.Name(), trials, distanceStats(trials)); err != nil {
		fmt.Fprintf(os.Stderr, "write report: %v\n", err)
		os.Exit(1)
	}
	log.Printf("✓ Report written: %s", *outDir)

	if *dbPath != "" {
		if err := recordRun(*dbPath, cfg, params, trials); err != nil {
			fmt.Fprintf(os.Stderr, "record run: %v\n", err)
			os.Exit(1)
		}
	}
}

// runSweep renders the marker at every distance and yaw combination and
// pushes each frame through the detector. Ground truth keeps the marker
// centred on the optical axis, yawed about its own vertical axis.
func runSweep(det *fiducial.Detector, cfg sweepConfig, distances, yaws []float64) ([]trial, error) {
	in := fiducial.NewIntrinsics(cfg.focal, cfg.principal, [3]float64{}, [2]float64{})
	var trials []trial
	for _, dist := range distances {
		for _, yawDeg := range yaws {
			rvec := fiducial.ComposeRotations(
				[3]float64{math.Pi, 0, 0},
				[3]float64{0, yawDeg * math.Pi / 180, 0},
			)
			tvec := [3]float64{0, 0, dist}
			frame, err := fiducial.RenderMarkerFrame(cfg.dict, cfg.markerID, cfg.size, rvec, tvec, in, cfg.width, cfg.height, 1)
			if err != nil {
				return nil, fmt.Errorf("render distance %g yaw %g: %w", dist, yawDeg, err)
			}
			det.DetectMarkers(frame, cfg.focal, cfg.principal, [3]float64{}, [2]float64{}, cfg.size, cfg.family)

			tr := trial{Distance: dist, YawDeg: yawDeg}
			if pos, rot, ok := det.DetectedMarkerPose(cfg.markerID); ok {
				tr.Detected = true
				dx := float64(pos[0]) - tvec[0]
				dy := float64(pos[1]) - tvec[1]
				dz := float64(pos[2]) - tvec[2]
				tr.PosErr = math.Sqrt(dx*dx + dy*dy + dz*dz)
				tr.RotErr = fiducial.RotationBetween(
					[3]float64{float64(rot[0]), float64(rot[1]), float64(rot[2])}, rvec)
			}
			trials = append(trials, tr)
		}
	}
	return trials, nil
}

func summarize(trials []trial) benchSummary {
	sum := benchSummary{Trials: len(trials)}
	for _, tr := range trials {
		if !tr.Detected {
			continue
		}
		sum.Detected++
		sum.MeanPosErr += tr.PosErr
		sum.MeanRotErr += tr.RotErr
	}
	if sum.Detected > 0 {
		sum.MeanPosErr /= float64(sum.Detected)
		sum.MeanRotErr /= float64(sum.Detected)
	}
	if sum.Trials > 0 {
		sum.HitRate = float64(sum.Detected) / float64(sum.Trials)
	}
	return sum
}

// distanceStats folds trials into one row per camera distance, sorted
// nearest first.
func distanceStats(trials []trial) []distanceStat {
	byDist := map[float64]*distanceStat{}
	for _, tr := range trials {
		st := byDist[tr.Distance]
		if st == nil {
			st = &distanceStat{Distance: tr.Distance}
			byDist[tr.Distance] = st
		}
		st.Trials++
		if tr.Detected {
			st.Detected++
			st.MeanPosErr += tr.PosErr
			st.MeanRotErr += tr.RotErr
		}
	}
	stats := make([]distanceStat, 0, len(byDist))
	for _, st := range byDist {
		if st.Detected > 0 {
			st.MeanPosErr /= float64(st.Detected)
			st.MeanRotErr /= float64(st.Detected)
		}
		st.HitRate = float64(st.Detected) / float64(st.Trials)
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Distance < stats[j].Distance })
	return stats
}

func parseFloatList(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no values in %q", s)
	}
	return out, nil
}

// recordRun persists the sweep to SQLite and echoes the stored
// aggregate back as a consistency check.
func recordRun(path string, cfg sweepConfig, params fiducial.DetectorParams, trials []trial) error {
	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	store := sqlite.NewBenchStore(db)

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	run := &sqlite.BenchRun{
		Dictionary:  cfg.dict.Name(),
		MarkerSize:  cfg.size,
		ImageWidth:  cfg.width,
		ImageHeight: cfg.height,
		ParamsJSON:  paramsJSON,
	}
	if err := store.InsertRun(run); err != nil {
		return err
	}
	for _, tr := range trials {
		sample := &sqlite.BenchSample{
			RunID:         run.RunID,
			MarkerID:      cfg.markerID,
			Distance:      tr.Distance,
			YawDeg:        tr.YawDeg,
			Detected:      tr.Detected,
			PositionError: tr.PosErr,
			RotationError: tr.RotErr,
		}
		if err := store.InsertSample(sample); err != nil {
			return err
		}
	}
	stored, err := store.Summary(run.RunID)
	if err != nil {
		return err
	}
	log.Printf("✓ Recorded run %s: %d samples, %d detected", run.RunID, stored.Samples, stored.Detected)
	return nil
}
