package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Serves the fixtures written by export-mirror on FantLab-shaped routes, so a
// sync run can be pointed at it for an offline demo:
//
//	BOOKHUB_FANTLAB_API_URL=http://localhost:9000 ./sync -platform fantlab
func main() {
	dataDir := flag.String("data", "data/mirror", "directory with mirror fixtures")
	addr := flag.String("addr", ":9000", "listen address")
	flag.Parse()

	http.HandleFunc("/work/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/work/")
		name := ""
		switch {
		case strings.HasSuffix(rest, "/responses"):
			id, ok := parseID(strings.TrimSuffix(rest, "/responses"))
			if !ok {
				http.NotFound(w, r)
				return
			}
			name = fmt.Sprintf("responses_%d.json", id)
		default:
			id, ok := parseID(rest)
			if !ok {
				http.NotFound(w, r)
				return
			}
			name = fmt.Sprintf("work_%d.json", id)
		}

		serveFixture(w, r, filepath.Join(*dataDir, name))
	})

	log.Printf("mirror-server listening on %s, fixtures from %s", *addr, *dataDir)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.Trim(s, "/"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func serveFixture(w http.ResponseWriter, r *http.Request, path string) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "cannot read fixture: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// validate so a broken fixture fails loudly instead of poisoning a run
	var tmp any
	if err := json.Unmarshal(b, &tmp); err != nil {
		http.Error(w, "fixture invalid JSON: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
