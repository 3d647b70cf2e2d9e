package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/eduquest/adventure-engine/pkg/game"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:    5 * time.Minute, // generation calls are slow
	}

	client := newAPIClient(cfg.APIBaseURL, &http.Client{
		Timeout: cfg.Timeout,
	})

	if !client.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	in := bufio.NewReader(os.Stdin)

	user, err := signIn(in, client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sign in failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nWelcome, %s!\n\n", displayName(user))

	g, err := pickGame(in, client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up game: %v\n", err)
		os.Exit(1)
	}

	agg, err := client.GetGame(g.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load game: %v\n", err)
		os.Exit(1)
	}

	character, err := pickCharacter(in, client, agg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up character: %v\n", err)
		os.Exit(1)
	}

	session := agg.Session
	if session == nil {
		fmt.Println("Starting your adventure...")
		session, err = client.StartScene(g.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start session: %v\n", err)
			os.Exit(1)
		}
	}

	p := tea.NewProgram(NewConsoleUI(client, agg.Game, character, agg.Quests, session),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithMouseAllMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func signIn(in *bufio.Reader, client *apiClient) (*game.PublicUser, error) {
	fmt.Print("(1) Log in or (2) Sign up? ")
	choice := readLine(in)

	email := prompt(in, "Email: ")
	password := prompt(in, "Password: ")

	if choice == "2" {
		name := prompt(in, "Display name: ")
		resp, err := client.Signup(email, password, name)
		if err != nil {
			return nil, err
		}
		return &resp.User, nil
	}

	resp, err := client.Login(email, password)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func pickGame(in *bufio.Reader, client *apiClient) (*game.Game, error) {
	games, err := client.ListGames()
	if err != nil {
		return nil, err
	}

	if len(games) > 0 {
		fmt.Println("Your games:")
		for i, g := range games {
			fmt.Printf("  %d - %s (%s, %s)\n", i+1, g.Title, g.LearningObjective, g.AgeGroup)
		}
		fmt.Print("\nSelect a game by number, or press Enter to create a new one: ")
		if choice, err := strconv.Atoi(readLine(in)); err == nil && choice >= 1 && choice <= len(games) {
			return &games[choice-1], nil
		}
	}

	settings := game.Settings{
		Title:             prompt(in, "Game title: "),
		LearningObjective: prompt(in, "Learning objective (e.g. multiplication tables): "),
		AgeGroup:          prompt(in, "Age group (e.g. 7-9): "),
		Theme:             prompt(in, "Theme (e.g. Fantasy Kingdom): "),
		DifficultyLevel:   prompt(in, "Difficulty (beginner/intermediate/advanced): "),
	}

	g, err := client.CreateGame(settings)
	if err != nil {
		return nil, err
	}

	fmt.Println("\nGenerating your adventure. This may take a minute...")
	if _, err := client.BuildAdventure(g.ID); err != nil {
		return nil, fmt.Errorf("adventure generation failed: %w", err)
	}
	return g, nil
}

func pickCharacter(in *bufio.Reader, client *apiClient, agg *GameAggregate) (*game.Character, error) {
	if len(agg.Characters) > 0 {
		fmt.Println("Your characters:")
		for i, c := range agg.Characters {
			fmt.Printf("  %d - %s (%s)\n", i+1, c.Name, c.Archetype)
		}
		fmt.Print("\nSelect a character by number, or press Enter to create a new one: ")
		if choice, err := strconv.Atoi(readLine(in)); err == nil && choice >= 1 && choice <= len(agg.Characters) {
			return &agg.Characters[choice-1], nil
		}
	}

	fmt.Println("Generating character options...")
	options, err := client.GenerateCharacterOptions(agg.Game.ID)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("no character options were generated")
	}

	fmt.Println("\nCharacter options:")
	for i, opt := range options {
		fmt.Printf("  %d - %s: %s\n", i+1, opt.Name, opt.Description)
	}
	fmt.Print("\nSelect an archetype by number: ")
	choice, err := strconv.Atoi(readLine(in))
	if err != nil || choice < 1 || choice > len(options) {
		return nil, fmt.Errorf("invalid selection")
	}
	tmpl := options[choice-1]

	name := prompt(in, "Character name: ")
	background := ""
	if len(tmpl.BackgroundOptions) > 0 {
		background = tmpl.BackgroundOptions[0].Description
	}
	return client.CreateCharacter(agg.Game.ID, name, tmpl.Name, background, tmpl.StartingAttributes)
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	return readLine(in)
}

func readLine(in *bufio.Reader) string {
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func displayName(u *game.PublicUser) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
