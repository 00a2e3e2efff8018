package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"video-comments/internal/realtime"
)

// Tails the realtime endpoint through the shared connection hub: logs in,
// attaches a port, prints every envelope, and forwards stdin lines onto the
// connection.
func main() {
	addr := flag.String("addr", "localhost:8008", "server host:port")
	video := flag.Int64("video", 1, "video id to watch")
	user := flag.String("user", "", "username")
	pass := flag.String("pass", "", "password")
	flag.Parse()

	if *user == "" || *pass == "" {
		log.Fatal("both -user and -pass are required")
	}

	token, err := login(*addr, *user, *pass)
	if err != nil {
		log.Fatal("login failed: ", err)
	}

	dialer := &realtime.WebsocketDialer{
		URL: fmt.Sprintf("ws://%s/realtime?token=%s&videoId=%d", *addr, token, *video),
	}
	hub := realtime.NewHub(dialer)
	defer hub.Shutdown()

	port := hub.Attach()
	defer port.Close()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			// The scanner reuses its buffer; the hub consumes asynchronously.
			line := append([]byte(nil), scanner.Bytes()...)
			port.Send(line)
		}
	}()

	for env := range port.Messages() {
		switch env.Type {
		case realtime.EnvelopeConnected:
			log.Println("connected")
		case realtime.EnvelopeDisconnected:
			log.Println("disconnected")
			return
		default:
			log.Printf("message: %s", env.Data)
		}
	}
}

func login(addr, user, pass string) (string, error) {
	body, _ := json.Marshal(map[string]string{"user_name": user, "password": pass})
	resp, err := http.Post(fmt.Sprintf("http://%s/api/login", addr), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}
