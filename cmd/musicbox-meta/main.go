/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the Musicbox project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"musicbox/internal/catalog"
	"musicbox/internal/container"
	"musicbox/internal/loader"
	"musicbox/pkg/spec"

	"github.com/faiface/beep"
	"github.com/mitchellh/go-homedir"
)

const (
	app_name      = "Musicbox-Meta"
	general_usage = "Usage: ./musicbox-meta -track <path or url> [-pass <passphrase>] [-jsondump]"
)

// sparkline levels, low to high
var levels = []rune("▁▂▃▄▅▆▇█")

func main() {
	trackFlag := flag.String("track", "", "path or URL of a .wav, .mp3 or .mbx track")
	passFlag := flag.String("pass", os.Getenv("MUSICBOX_PASSPHRASE"), "passphrase for sealed tracks")
	jsonDump := flag.Bool("jsondump", false, "dump the analysis as JSON")
	flag.Parse()

	if *trackFlag == "" {
		fmt.Printf("\n%s %s\n", app_name, spec.Version)
		fmt.Printf("%s\n", general_usage)
		return
	}

	if strings.EqualFold(filepath.Ext(*trackFlag), ".mbx") {
		printSealedHeader(*trackFlag)
	}

	lib := loader.New(loader.Options{SampleRate: beep.SampleRate(spec.SampleRate), Passphrase: *passFlag})
	id := strings.TrimSuffix(filepath.Base(*trackFlag), filepath.Ext(*trackFlag))
	buf, err := lib.Load(context.Background(), catalog.Track{ID: id, Name: id, Source: *trackFlag})
	if err != nil {
		fmt.Printf("[!] %v\n", err)
		os.Exit(1)
	}
	an, _ := lib.Analysis(id)

	fmt.Println(strings.Repeat("=", 75))
	fmt.Printf(" TRACK         : %s\n", id)
	fmt.Printf(" DURATION      : %s\n", an.Duration.Round(1e6))
	fmt.Printf(" SAMPLES       : %d @ %dHz\n", buf.Len(), spec.SampleRate)
	fmt.Printf(" PEAK          : %.3f\n", an.Peak)
	fmt.Printf(" DOMINANT      : %.1f Hz\n", an.DominantHz)
	fmt.Printf(" WAVEFORM      : %s\n", sparkline(an.Waveform))
	fmt.Println(strings.Repeat("=", 75))

	if *jsonDump {
		j, _ := json.MarshalIndent(an, "", "  ")
		fmt.Println(string(j))
		fmt.Println("=== [END DUMP] ===")
	}
}

func printSealedHeader(path string) {
	p, err := homedir.Expand(path)
	if err != nil {
		fmt.Printf("[!] %v\n", err)
		return
	}
	f, err := os.Open(p)
	if err != nil {
		fmt.Printf("[!] %v\n", err)
		return
	}
	defer f.Close()

	r, err := container.Open(f)
	if err != nil {
		fmt.Printf("[!] %v\n", err)
		return
	}
	frames, size := 0, 0
	for {
		fr, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Printf("[!] %v\n", err)
			break
		}
		frames++
		size += len(fr)
	}

	fmt.Println(strings.Repeat("=", 75))
	fmt.Printf(" SEALED NAME   : %s\n", r.Header.Name)
	fmt.Printf(" SAMPLE RATE   : %d Hz\n", r.Header.SampleRate)
	fmt.Printf(" FRAMES        : %d (%s)\n", frames, formatSize(int64(size)))
}

func sparkline(w []byte) string {
	var b strings.Builder
	for _, v := range w {
		b.WriteRune(levels[int(v)*(len(levels)-1)/255])
	}
	return b.String()
}

func formatSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	if exp == 0 {
		return fmt.Sprintf("%.2f Kb", float64(b)/float64(unit))
	}
	return fmt.Sprintf("%.2f Mb", float64(b)/float64(div))
}
