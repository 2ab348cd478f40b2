package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"bookhub/internal/notify"
	"bookhub/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

type bookListResponse struct {
	Total int           `json:"total"`
	Items []models.Book `json:"items"`
}

func main() {
	global := flag.NewFlagSet("bookhub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "books":
		handleBooks(ctx, client, *baseURL, sub, args[2:])
	case "reviews":
		handleReviews(ctx, client, *baseURL, sub, args[2:])
	case "progress":
		handleProgress(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "sync":
		handleSync(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "notify":
		handleNotify(*baseURL, sub, args[2:])
	case "export":
		handleExport(ctx, client, *baseURL, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}

		payload := map[string]string{"username": *username, "email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ registered and logged in")
	case "logout":
		token, err := readToken(tokenPath)
		if err == nil && token != "" {
			// best effort server-side invalidation; local token goes either way
			_ = doJSON(ctx, client, http.MethodPost, baseURL+"/auth/logout", token, nil, nil)
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: bookhub auth <login|register|logout>")
	}
}

func handleBooks(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "list":
		var resp bookListResponse
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/books", "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "search":
		fs := flag.NewFlagSet("books search", flag.ExitOnError)
		query := fs.String("q", "", "search query")
		_ = fs.Parse(args)
		if *query == "" {
			log.Fatal("query is required")
		}

		u, err := url.Parse(baseURL + "/books")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		qv.Set("q", *query)
		u.RawQuery = qv.Encode()

		var resp bookListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("search failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("books show", flag.ExitOnError)
		id := fs.String("id", "", "book id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("book id is required")
		}

		var resp models.Book
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/books/"+url.PathEscape(*id), "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "toc":
		fs := flag.NewFlagSet("books toc", flag.ExitOnError)
		id := fs.String("id", "", "book id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("book id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/books/"+url.PathEscape(*id)+"/toc", "", nil, &resp); err != nil {
			log.Fatalf("toc failed: %v", err)
		}
		printJSON(resp)
	case "read":
		fs := flag.NewFlagSet("books read", flag.ExitOnError)
		id := fs.String("id", "", "book id")
		section := fs.Int("section", 0, "section number")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("book id is required")
		}

		endpoint := fmt.Sprintf("%s/books/%s/sections/%d", baseURL, url.PathEscape(*id), *section)
		var resp struct {
			N          int      `json:"n"`
			Total      int      `json:"total"`
			Title      string   `json:"title"`
			Paragraphs []string `json:"paragraphs"`
		}
		if err := doJSON(ctx, client, http.MethodGet, endpoint, "", nil, &resp); err != nil {
			log.Fatalf("read failed: %v", err)
		}
		fmt.Printf("== %s (%d/%d) ==\n\n", resp.Title, resp.N+1, resp.Total)
		for _, p := range resp.Paragraphs {
			fmt.Println(p)
			fmt.Println()
		}
	default:
		log.Fatal("usage: bookhub books <list|search|show|toc|read>")
	}
}

func handleReviews(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("reviews list", flag.ExitOnError)
		id := fs.String("book-id", "", "book id")
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("book-id is required")
		}

		u, err := url.Parse(baseURL + "/books/" + url.PathEscape(*id) + "/reviews")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "average":
		fs := flag.NewFlagSet("reviews average", flag.ExitOnError)
		id := fs.String("book-id", "", "book id (omit for series average)")
		_ = fs.Parse(args)

		endpoint := baseURL + "/reviews/average"
		if *id != "" {
			endpoint = baseURL + "/books/" + url.PathEscape(*id) + "/reviews/average"
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, endpoint, "", nil, &resp); err != nil {
			log.Fatalf("average failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: bookhub reviews <list|average>")
	}
}

func handleProgress(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "set":
		fs := flag.NewFlagSet("progress set", flag.ExitOnError)
		bookID := fs.Int64("book-id", 0, "book id")
		section := fs.Int("section", 0, "current section")
		status := fs.String("status", "reading", "status")
		_ = fs.Parse(args)
		if *bookID <= 0 {
			log.Fatal("book-id is required")
		}

		payload := map[string]any{
			"book_id":         *bookID,
			"current_section": *section,
			"status":          *status,
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/progress", token, payload, &resp); err != nil {
			log.Fatalf("set failed: %v", err)
		}
		printJSON(resp)
	case "list":
		fs := flag.NewFlagSet("progress list", flag.ExitOnError)
		status := fs.String("status", "", "status filter")
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/users/progress")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *status != "" {
			qv.Set("status", *status)
		}
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "remove":
		fs := flag.NewFlagSet("progress remove", flag.ExitOnError)
		bookID := fs.Int64("book-id", 0, "book id")
		_ = fs.Parse(args)
		if *bookID <= 0 {
			log.Fatal("book-id is required")
		}

		endpoint := fmt.Sprintf("%s/users/progress/%d", baseURL, *bookID)
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, endpoint, token, nil, &resp); err != nil {
			log.Fatalf("remove failed: %v", err)
		}
		printJSON(resp)
	case "history":
		fs := flag.NewFlagSet("progress history", flag.ExitOnError)
		bookID := fs.Int64("book-id", 0, "book id")
		limit := fs.Int("limit", 50, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)
		if *bookID <= 0 {
			log.Fatal("book-id is required")
		}

		u, err := url.Parse(fmt.Sprintf("%s/users/progress/%d/history", baseURL, *bookID))
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			log.Fatalf("history failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: bookhub progress <set|list|remove|history>")
	}
}

func handleSync(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "trigger":
		fs := flag.NewFlagSet("sync trigger", flag.ExitOnError)
		platform := fs.String("platform", "fantlab", "fantlab or authortoday")
		_ = fs.Parse(args)
		if *platform != "fantlab" && *platform != "authortoday" {
			log.Fatal("platform must be fantlab or authortoday")
		}

		token := mustToken(tokenPath)
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/sync/"+*platform, token, nil, &resp); err != nil {
			log.Fatalf("trigger failed: %v", err)
		}
		printJSON(resp)
	case "status":
		token := mustToken(tokenPath)
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/sync/status", token, nil, &resp); err != nil {
			log.Fatalf("status failed: %v", err)
		}
		printJSON(resp)
	case "listen":
		fs := flag.NewFlagSet("sync listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP event server address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runSyncTCP(*addr, *pretty); err != nil {
				log.Printf("[sync] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	default:
		log.Fatal("usage: bookhub sync <trigger|status|listen>")
	}
}

func handleNotify(baseURL, sub string, args []string) {
	switch sub {
	case "subscribe":
		fs := flag.NewFlagSet("notify subscribe", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	case "udp":
		fs := flag.NewFlagSet("notify udp", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7071", "UDP notify server address")
		userID := fs.String("user", "", "user id to register as")
		_ = fs.Parse(args)
		if *userID == "" {
			log.Fatal("user is required")
		}
		if err := runNotifyUDP(*addr, *userID); err != nil {
			log.Fatalf("notify udp failed: %v", err)
		}
	default:
		log.Fatal("usage: bookhub notify <subscribe|udp>")
	}
}

func handleExport(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "json":
		fs := flag.NewFlagSet("export json", flag.ExitOnError)
		out := fs.String("out", "data/books.json", "output JSON path")
		_ = fs.Parse(args)

		items, err := fetchBooks(ctx, client, baseURL)
		if err != nil {
			log.Fatalf("export json failed: %v", err)
		}
		if err := writeJSON(*out, items); err != nil {
			log.Fatalf("write json failed: %v", err)
		}
		log.Printf("✅ exported %d books to %s", len(items), *out)
	case "csv":
		fs := flag.NewFlagSet("export csv", flag.ExitOnError)
		out := fs.String("out", "data/books.csv", "output CSV path")
		_ = fs.Parse(args)

		items, err := fetchBooks(ctx, client, baseURL)
		if err != nil {
			log.Fatalf("export csv failed: %v", err)
		}
		if err := writeCSV(*out, items); err != nil {
			log.Fatalf("write csv failed: %v", err)
		}
		log.Printf("✅ exported %d books to %s", len(items), *out)
	default:
		log.Fatal("usage: bookhub export <json|csv>")
	}
}

func runSyncTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[notify] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func runNotifyUDP(addr, userID string) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	reg, err := json.Marshal(notify.RegisterMessage{
		Type:   notify.RegisterMessageType,
		UserID: userID,
	})
	if err != nil {
		return err
	}
	if _, err := conn.Write(reg); err != nil {
		return err
	}
	log.Printf("[notify] registered with %s as %s, waiting for pushes", addr, userID)

	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		fmt.Println(string(buf[:n]))
	}
}

func fetchBooks(ctx context.Context, client *http.Client, baseURL string) ([]models.Book, error) {
	var resp bookListResponse
	if err := doJSON(ctx, client, http.MethodGet, baseURL+"/books", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func writeJSON(path string, items []models.Book) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []models.Book) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"id", "title", "author", "series_order", "rating", "voters_count", "reviews_count",
	}); err != nil {
		return err
	}
	for _, item := range items {
		if err := writer.Write([]string{
			fmt.Sprintf("%d", item.ID),
			item.Title,
			item.Author,
			fmt.Sprintf("%d", item.SeriesOrder),
			fmt.Sprintf("%.2f", item.Rating),
			fmt.Sprintf("%d", item.VotersCount),
			fmt.Sprintf("%d", item.ReviewsCount),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.bookhub-token.json"
	}
	return filepath.Join(home, ".bookhub", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("bookhub <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|logout")
	fmt.Println("  books list|search|show|toc|read")
	fmt.Println("  reviews list|average")
	fmt.Println("  progress set|list|remove|history")
	fmt.Println("  sync trigger|status|listen")
	fmt.Println("  notify subscribe|udp")
	fmt.Println("  export json|csv")
}
