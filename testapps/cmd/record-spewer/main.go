package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"
)

func main() {
	var addr string
	var interval time.Duration
	var count int
	var source string
	flag.StringVar(&addr, "addr", "localhost:10053", "Address of the logship TCP input")
	flag.DurationVar(&interval, "interval", 50*time.Millisecond, "Delay between records")
	flag.IntVar(&count, "count", 50, "Number of records to send")
	flag.StringVar(&source, "source", "spewer", "Value of the source field")
	flag.Parse()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	for i := 0; i < count; i++ {
		record := fmt.Sprintf(
			`{"message":"record %d","source":%q,"timestamp":%q}`,
			i, source, time.Now().Format(time.RFC3339),
		)
		if _, err := fmt.Fprintln(conn, record); err != nil {
			fmt.Fprintf(os.Stderr, "write: %v\n", err)
			os.Exit(1)
		}
		time.Sleep(interval)
	}
}
