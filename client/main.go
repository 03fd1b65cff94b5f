package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"portal-service/internal/conversation"
)

func main() {
	apiAddr := flag.String("api", "http://localhost:8086", "portal service address")
	wsAddr := flag.String("ws", "ws://localhost:8086", "portal websocket address")
	token := flag.String("token", "", "bearer token")
	userID := flag.Int("user", 0, "user id matching the token")
	userName := flag.String("name", "", "display name for typing signals")
	requestID := flag.Int("request", 0, "request id to join")
	flag.Parse()

	if *token == "" || *userID == 0 || *requestID == 0 {
		log.Fatal("usage: -token, -user and -request are required")
	}

	client := conversation.NewClient(conversation.Config{
		BaseURL:   *apiAddr,
		WSBaseURL: *wsAddr,
		Token:     *token,
		UserID:    *userID,
		UserName:  *userName,
		Notifier:  conversation.LogNotifier{},
	})
	defer client.Close()

	ctx := context.Background()
	if err := client.FetchHistory(ctx, *requestID); err != nil {
		log.Fatal("failed to load history:", err)
	}
	for _, msg := range client.Messages() {
		fmt.Printf("%d: %s\n", msg.SenderID, msg.Content)
	}

	if err := client.Subscribe(ctx, *requestID); err != nil {
		log.Fatal("failed to join conversation:", err)
	}
	log.Printf("joined request %d as user %d", *requestID, *userID)

	// Poll the local view so pushed messages and typing changes show up
	// between prompts.
	go func() {
		shown := len(client.Messages())
		for range time.Tick(300 * time.Millisecond) {
			msgs := client.Messages()
			for _, msg := range msgs[shown:] {
				fmt.Printf("\r%d: %s\n> ", msg.SenderID, msg.Content)
			}
			shown = len(msgs)

			if typing := client.Typing(); len(typing) > 0 {
				names := make([]string, 0, len(typing))
				for _, sig := range typing {
					names = append(names, sig.UserName)
				}
				fmt.Printf("\r%s typing...\n> ", strings.Join(names, ", "))
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := scanner.Text()
			if text == "/quit" {
				close(interrupt)
				return
			}

			client.UpdateDraft(text)
			if strings.TrimSpace(text) == "" {
				fmt.Print("> ")
				continue
			}

			if err := client.SendMessage(ctx, *requestID, text); err != nil {
				log.Println("send:", err)
				log.Printf("draft kept: %q", client.Draft())
			}
			fmt.Print("> ")
		}
	}()

	<-interrupt
	log.Println("interrupt")
}
