package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"resample3d/pkg/config"
	"resample3d/pkg/intensity"
	"resample3d/pkg/kernel"
	"resample3d/pkg/resample"
	"resample3d/pkg/volio"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing the subject's volume files")
	outputDir := flag.String("output", "resampled", "Directory to write resampled volumes")
	target := flag.String("target", "1", "Resampling target: spacing (e.g. 2 or 1,1,2.5), sibling image name, or reference volume path")
	interpolation := flag.String("interpolation", "linear", "Interpolation for intensity volumes: nearest, linear or bspline")
	preAffine := flag.String("pre-affine", "", "Name of a per-image affine correction matrix applied before resampling")
	scalarsOnly := flag.Bool("scalars-only", false, "Skip label volumes instead of resampling them with nearest")
	antiAlias := flag.Bool("antialias", false, "Gaussian pre-filter on axes being downsampled")
	rescale := flag.Bool("rescale", false, "Rescale intensity volumes to [0,1] after resampling")
	configPath := flag.String("config", "", "Optional YAML configuration file")
	flag.Parse()

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	// Load configuration and let explicitly set flags override it
	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "target":
			cfg.Resample.Target = *target
		case "interpolation":
			cfg.Resample.Interpolation = *interpolation
		case "pre-affine":
			cfg.Resample.PreAffineName = *preAffine
		case "scalars-only":
			cfg.Resample.ScalarsOnly = *scalarsOnly
		case "antialias":
			cfg.Resample.AntiAlias = *antiAlias
		case "rescale":
			cfg.Rescale.Enabled = *rescale
		}
	})

	fmt.Println("================================")
	fmt.Println("RESAMPLE3D: GEOMETRIC RESAMPLING OF 3D VOLUMES")
	fmt.Println("================================")

	// Load the subject bundle
	subject, err := volio.LoadBundle(*inputDir)
	if err != nil {
		log.Fatalf("Failed to load bundle: %v", err)
	}
	if cfg.Output.Verbose {
		fmt.Printf("Loaded %d volumes from %s\n", subject.Len(), *inputDir)
		for _, img := range subject.Images() {
			s := img.Volume.Spacing()
			fmt.Printf("- %s: %v voxels, spacing (%.2f, %.2f, %.2f) mm, %s\n",
				img.Key, img.Volume.Shape, s[0], s[1], s[2], img.Volume.Kind)
		}
	}

	// Build the transform
	transform, err := resample.New(&resample.Params{
		Target:        parseTarget(cfg.Resample.Target),
		Interpolation: cfg.Resample.Interpolation,
		PreAffineName: cfg.Resample.PreAffineName,
		ScalarsOnly:   cfg.Resample.ScalarsOnly,
		Loader:        volio.FileLoader{},
		Kernel:        &kernel.Resampler{AntiAlias: cfg.Resample.AntiAlias},
	})
	if err != nil {
		log.Fatalf("Invalid resampling parameters: %v", err)
	}

	// Resample
	fmt.Println("Starting resampling...")
	startTime := time.Now()
	if err := transform.Apply(subject); err != nil {
		log.Fatalf("Resampling failed: %v", err)
	}
	fmt.Printf("Resampling completed in %.2f seconds\n", time.Since(startTime).Seconds())

	// Optional intensity rescale
	if cfg.Rescale.Enabled {
		n, err := intensity.Rescale(subject, &intensity.RescaleParams{
			OutMin:          cfg.Rescale.OutMin,
			OutMax:          cfg.Rescale.OutMax,
			LowerPercentile: cfg.Rescale.LowerPercentile,
			UpperPercentile: cfg.Rescale.UpperPercentile,
			MaskName:        cfg.Rescale.MaskName,
		})
		if err != nil {
			log.Fatalf("Intensity rescale failed: %v", err)
		}
		fmt.Printf("Rescaled %d intensity volumes to [%.2f, %.2f]\n", n, cfg.Rescale.OutMin, cfg.Rescale.OutMax)
	}

	// Save results
	if err := volio.SaveBundle(*outputDir, subject); err != nil {
		log.Fatalf("Failed to save bundle: %v", err)
	}
	fmt.Printf("Resampled volumes saved to: %s\n", *outputDir)

	if cfg.Output.Verbose {
		fmt.Println("\nOutput geometries:")
		for _, img := range subject.Images() {
			s := img.Volume.Spacing()
			fmt.Printf("- %s: %v voxels, spacing (%.2f, %.2f, %.2f) mm\n",
				img.Key, img.Volume.Shape, s[0], s[1], s[2])
		}
	}
}

// parseTarget interprets the target string as a number, a comma-separated
// triple, or an image name/path.
func parseTarget(s string) any {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if parts := strings.Split(s, ","); len(parts) == 3 {
		var triple [3]float64
		for i, p := range parts {
			n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return s
			}
			triple[i] = n
		}
		return triple
	}
	return s
}
