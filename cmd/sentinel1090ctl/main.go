// Command sentinel1090ctl is a thin client for the line-oriented control
// channel exposed by sentinel1090d: it sends one command and prints the one
// JSON response line it gets back.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"strings"
	"time"
)

func main() {
	var addr string
	flag.StringVar(&addr, "addr", "127.0.0.1:8081", "Control channel address")
	flag.Parse()

	cmd := "SNAPSHOT"
	if flag.NArg() > 0 {
		cmd = strings.ToUpper(flag.Arg(0))
	}

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		log.Fatalf("dial %s: %v", addr, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s\n", cmd); err != nil {
		log.Fatalf("write command: %v", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		log.Fatalf("no response from %s: %v", addr, scanner.Err())
	}
	fmt.Println(scanner.Text())
}
