package main

import (
	"flag"
	"fmt"
	"os"
)

const seedPassword = "seedpassword123"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "full":
		fullCmd(apiURL, args)
	case "tasks":
		tasksCmd(apiURL, args)
	case "refresh":
		refreshCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Seeder - fills a running task manager with demo accounts and tasks

USAGE:
  seeder <command> [options]

COMMANDS:
  full      Sign up users, give each a few tasks and complete some of them
  tasks     Log in as an existing user and add tasks
  refresh   Exchange a refresh token id for a new access token
  help      Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:8080)

EXAMPLES:
  seeder full --users=3 --tasks=5
  seeder tasks --email=alice_123@seed.local --count=10
  seeder refresh --id=6f1c...`)
}

func fullCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("full", flag.ExitOnError)
	users := fs.Int("users", 3, "Number of accounts to create")
	tasks := fs.Int("tasks", 5, "Tasks per account")
	fs.Parse(args)

	if *users < 1 || *tasks < 0 {
		fmt.Println("Error: --users must be at least 1 and --tasks non-negative")
		os.Exit(1)
	}

	summary, err := seed(NewAPIClient(apiURL), *users, *tasks)
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("=========================================")
	fmt.Println("  SEEDED ACCOUNTS")
	fmt.Println("=========================================")
	for _, account := range summary {
		fmt.Printf("  %-28s password=%s tasks=%d refresh=%s\n",
			account.Email, seedPassword, account.Tasks, account.RefreshTokenID)
	}
	fmt.Println()
}

// SeededAccount describes one account created by seed.
type SeededAccount struct {
	Email          string
	Token          string
	RefreshTokenID string
	Tasks          int
}

// seed signs up users accounts with tasks tasks each and completes every
// other task.
func seed(client *APIClient, users, tasks int) ([]SeededAccount, error) {
	accounts := make([]SeededAccount, 0, users)

	for i := 0; i < users; i++ {
		auth, err := client.Signup(fmt.Sprintf("user%d", i+1), seedPassword)
		if err != nil {
			return accounts, err
		}
		fmt.Printf("  [%d/%d] %s signed up\n", i+1, users, auth.User.Email)

		for j := 0; j < tasks; j++ {
			task, err := client.CreateTask(auth.Token, fmt.Sprintf("Task %d for %s", j+1, auth.User.Username))
			if err != nil {
				return accounts, err
			}
			if j%2 == 1 {
				if _, err := client.CompleteTask(auth.Token, task.ID); err != nil {
					return accounts, err
				}
			}
		}

		accounts = append(accounts, SeededAccount{
			Email:          auth.User.Email,
			Token:          auth.Token,
			RefreshTokenID: auth.RefreshToken.ID,
			Tasks:          tasks,
		})
	}
	return accounts, nil
}

func tasksCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("tasks", flag.ExitOnError)
	email := fs.String("email", "", "Account email (required)")
	password := fs.String("password", seedPassword, "Account password")
	count := fs.Int("count", 5, "Number of tasks to add")
	fs.Parse(args)

	if *email == "" {
		fmt.Println("Error: --email is required")
		fmt.Println("\nUsage: seeder tasks --email=alice@seed.local [--count=5]")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)

	auth, err := client.Login(*email, *password)
	if err != nil {
		fmt.Printf("Failed to log in: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *count; i++ {
		if _, err := client.CreateTask(auth.Token, fmt.Sprintf("Seeded task %d", i+1)); err != nil {
			fmt.Printf("  [%d/%d] FAILED: %v\n", i+1, *count, err)
			continue
		}
		fmt.Printf("  [%d/%d] created\n", i+1, *count)
	}

	tasks, err := client.ListTasks(auth.Token)
	if err != nil {
		fmt.Printf("Failed to list tasks: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n%s now has %d task(s)\n", auth.User.Email, len(tasks))
}

func refreshCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	id := fs.String("id", "", "Refresh token id (required)")
	fs.Parse(args)

	if *id == "" {
		fmt.Println("Error: --id is required")
		os.Exit(1)
	}

	token, err := NewAPIClient(apiURL).Refresh(*id)
	if err != nil {
		fmt.Printf("Failed to refresh: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
