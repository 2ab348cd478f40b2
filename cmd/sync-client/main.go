package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"
)

// Follows the TCP event stream of a running api-server and renders sync and
// progress events one line each. -raw dumps the JSON as received instead.
func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP event server address")
	raw := flag.Bool("raw", false, "print raw JSON lines instead of rendering")
	flag.Parse()

	for {
		if err := follow(*addr, *raw); err != nil {
			log.Printf("[events] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func follow(addr string, raw bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[events] connected to %s", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()
		if raw {
			fmt.Println(string(line))
			continue
		}
		fmt.Println(render(line))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func render(line []byte) string {
	var ev map[string]any
	if err := json.Unmarshal(line, &ev); err != nil {
		return string(line)
	}

	kind, _ := ev["type"].(string)
	switch kind {
	case "sync.started":
		return fmt.Sprintf("sync started: %v, %v books", ev["platform"], ev["books"])
	case "sync.book":
		status := "ok"
		if success, _ := ev["success"].(bool); !success {
			status = fmt.Sprintf("failed: %v", ev["error"])
		}
		return fmt.Sprintf("book %v [%v]: %v comments, %v reviews, rating %v (%s)",
			ev["book_id"], ev["platform"], ev["comments"], ev["reviews"], ev["rating"], status)
	case "sync.finished":
		summary, _ := ev["summary"].(map[string]any)
		if summary == nil {
			return string(line)
		}
		if success, _ := summary["success"].(bool); !success {
			return fmt.Sprintf("sync finished: %v FAILED: %v", summary["platform"], summary["error"])
		}
		return fmt.Sprintf("sync finished: %v, %v/%v books updated, %v comments, %v reviews",
			summary["platform"], summary["updated_books"], summary["total_books"],
			summary["comments"], summary["reviews"])
	case "progress.update":
		return fmt.Sprintf("progress: user %v book %v section %v (%v)",
			ev["user_id"], ev["book_id"], ev["current_section"], ev["status"])
	default:
		return string(line)
	}
}
