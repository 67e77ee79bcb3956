package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"wineclass/ml"
	"wineclass/wine"
)

func main() {
	modelPath := flag.String("model", "models/wine_classifier.json", "model artifact path")
	samplePath := flag.String("sample", "", "JSON sample file to classify (use - for stdin)")
	flag.Parse()

	ensemble, err := ml.LoadEnsemble(*modelPath, wine.FeatureNames())
	if err != nil {
		log.Fatalf("model check failed: %v", err)
	}

	info := ensemble.Info()
	fmt.Printf("artifact:  %s\n", info.Path)
	fmt.Printf("version:   %d\n", info.FormatVersion)
	if info.CreatedAt != "" {
		fmt.Printf("created:   %s\n", info.CreatedAt)
	}
	fmt.Printf("trees:     %d\n", info.TreeCount)
	fmt.Printf("classes:   %v\n", info.Classes)
	fmt.Printf("features:  %d\n", len(info.FeatureNames))

	if *samplePath == "" {
		fmt.Println("model ok")
		return
	}

	body, err := readSample(*samplePath)
	if err != nil {
		log.Fatalf("failed to read sample: %v", err)
	}
	sample, err := wine.ParseSample(body)
	if err != nil {
		log.Fatalf("invalid sample: %v", err)
	}

	label, confidence, err := ensemble.Predict(wine.FeatureVector(sample))
	if err != nil {
		log.Fatalf("prediction failed: %v", err)
	}
	fmt.Printf("prediction: %d (confidence %.2f)\n", label, confidence)
}

func readSample(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
