package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"musicbox/pkg/spec"

	"github.com/chzyer/readline"
)

const app_name = "Musicbox-Client"

var verbs = []string{
	"ABOUT", "PING", "WHOAMI", "STATUS", "TRACKS",
	"KEY-RECT", "UNMOUNT", "PRESS", "MOVE", "RELEASE",
	"SELECT", "TOGGLE", "STOP", "WATCH", "QUIT",
}

func main() {
	socket := os.Getenv("MUSICBOX_SOCKET")
	if socket == "" {
		socket = "/tmp/musicbox.sock"
	}

	fmt.Printf("\n%s V.%s\n", app_name, spec.Version)
	conn, err := net.Dial("unix", socket)
	if err != nil {
		fmt.Println("CONNECT ERROR:", err)
		os.Exit(1)
	}
	defer conn.Close()

	var items []readline.PrefixCompleterInterface
	for _, v := range verbs {
		items = append(items, readline.PcItem(v))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "musicbox> ",
		AutoComplete: readline.NewPrefixCompleter(items...),
	})
	if err != nil {
		fmt.Println("READLINE ERROR:", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("CONNECTED to", socket)
	fmt.Println("Type a command and press Enter (TAB completes)")
	fmt.Println(`Type "QUIT" to exit`)
	fmt.Println()

	// socket → terminal
	go func() {
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			fmt.Fprintln(rl.Stdout(), "RECV:", sc.Text())
		}
		fmt.Fprintln(rl.Stdout(), "SOCKET CLOSED")
		os.Exit(0)
	}()

	// terminal → socket
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "QUIT") {
			fmt.Println("Bye.")
			return
		}
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			fmt.Println("WRITE ERROR:", err)
			os.Exit(1)
		}
	}
}
