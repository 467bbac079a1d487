package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"musicbox/internal/seal"
	"musicbox/pkg/spec"

	"github.com/chzyer/readline"
	"github.com/mitchellh/go-homedir"
)

const app_name = "Musicbox-Seal"

func main() {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: ">> ",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItemDynamic(listFiles),
		),
	})
	if err != nil {
		fmt.Printf("[FAIL] %v\n", err)
		os.Exit(1)
	}
	job, err := runSealInterview(rl)
	rl.Close()
	if errors.Is(err, errQuit) {
		fmt.Println("Bye.")
		return
	}
	if err != nil {
		fmt.Printf("[FAIL] %v\n", err)
		os.Exit(1)
	}
	src, dst, name, pass, normalize := job.src, job.dst, job.name, job.pass, job.normalize

	in, err := os.Open(src)
	if err != nil {
		fmt.Printf("[FAIL] cannot open source: %v\n", err)
		os.Exit(1)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		fmt.Printf("[FAIL] cannot create output: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n[START] SEALING: %s\n", name)
	var bar *Progress
	st, err := seal.Track(in, out, seal.Options{
		Name:       name,
		Passphrase: pass,
		Normalize:  normalize,
		Progress: func(done, total int) {
			if bar == nil {
				bar = NewProgress(total)
			}
			bar.Set(done)
		},
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		fmt.Printf("\n[FAIL] %v\n", err)
		os.Exit(1)
	}

	ratio := 0.0
	if st.Bytes > 0 {
		ratio = float64(st.InputBytes) / float64(st.Bytes)
	}
	fmt.Printf(" >> %d frames, %d bytes (%.1fx smaller)\n", st.Frames, st.Bytes, ratio)
	fmt.Printf("\n[SUCCESS] Track Sealed: %s\n", dst)
}

type sealJob struct {
	src, dst, name, pass string
	normalize            bool
}

// errQuit ends the interview: the user chose quit or stdin closed.
var errQuit = errors.New("quit")

// prompter is the slice of *readline.Instance the interview uses.
type prompter interface {
	SetPrompt(p string)
	Readline() (string, error)
}

func runSealInterview(rl prompter) (sealJob, error) {
	var (
		job       sealJob
		norm, ans string
		err       error
	)
	fmt.Printf("\n%s V.%s\n", app_name, spec.Version)
	for {
		fmt.Printf("\n=== SEAL A TRACK (%dHz WAV) ===\n", spec.OpusSampleRate)
		fmt.Println("(Tip: Use TAB to autocomplete paths)")
		if job.src, err = askValidFile(rl, "1. Source WAV", ""); err != nil {
			return job, err
		}
		base := strings.TrimSuffix(filepath.Base(job.src), filepath.Ext(job.src))
		if job.dst, err = ask(rl, "2. Output Path", filepath.Join(filepath.Dir(job.src), base+".mbx")); err != nil {
			return job, err
		}
		if job.name, err = ask(rl, "3. Track Name", base); err != nil {
			return job, err
		}
		if job.pass, err = ask(rl, "4. Passphrase", os.Getenv("MUSICBOX_PASSPHRASE")); err != nil {
			return job, err
		}
		if norm, err = ask(rl, "5. Normalize? (y/n)", "y"); err != nil {
			return job, err
		}
		job.normalize = strings.HasPrefix(strings.ToLower(norm), "y")

		fmt.Println("\n--- REVIEW ---")
		fmt.Printf(" [Source] : %s\n [Output] : %s\n [Name]   : %s\n [Normal] : %v\n", job.src, job.dst, job.name, job.normalize)
		fmt.Println("--------------")

		if ans, err = ask(rl, "Proceed? (y) Yes / (r) Restart / (q) Quit", "y"); err != nil {
			return job, err
		}
		switch ans {
		case "y":
			if job.pass == "" {
				fmt.Println(" [!] Passphrase must not be empty.")
				continue
			}
			return job, nil
		case "q":
			return job, errQuit
		}
	}
}

func ask(rl prompter, label, defaultVal string) (string, error) {
	rl.SetPrompt(fmt.Sprintf("%s [%s]: ", label, defaultVal))
	line, err := rl.Readline()
	if err == io.EOF || err == readline.ErrInterrupt {
		return "", errQuit
	}
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultVal, nil
	}
	return line, nil
}

func askValidFile(rl prompter, label, defaultVal string) (string, error) {
	for {
		a, err := ask(rl, label, defaultVal)
		if err != nil {
			return "", err
		}
		if p, err := homedir.Expand(a); err == nil {
			if s, err := os.Stat(p); err == nil && !s.IsDir() {
				return p, nil
			}
		}
		fmt.Println(" [!] Path is not a valid file.")
	}
}

func listFiles(line string) []string {
	dir := filepath.Dir(line)
	if line == "" {
		dir = "."
	}
	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		name := filepath.Join(dir, e.Name())
		if strings.HasPrefix(name, line) {
			names = append(names, name)
		}
	}
	return names
}
