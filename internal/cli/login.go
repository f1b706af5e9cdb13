package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sboruta/tracker/internal/agent"
	"github.com/sboruta/tracker/internal/config"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and persist the agent identity",
	RunE:  runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAgent(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	email = strings.TrimSpace(email)

	fmt.Print("Password: ")
	password, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}

	state, err := signin(cfg.ServerURL, email, string(password))
	if err != nil {
		return err
	}
	if err := agent.SaveState(cfg.StateDir, state); err != nil {
		return err
	}

	fmt.Printf("Signed in as %s\n", email)
	return nil
}

func signin(serverURL, email, password string) (*agent.State, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Post(serverURL+"/v1/auth/employee/signin", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("invalid credentials")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sign in: unexpected status %d", resp.StatusCode)
	}

	var ar struct {
		Token      string `json:"token"`
		EmployeeID string `json:"employee_id"`
		CompanyID  string `json:"company_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("decode sign in response: %w", err)
	}
	if ar.Token == "" || ar.EmployeeID == "" {
		return nil, fmt.Errorf("sign in response missing identity")
	}

	return &agent.State{
		Token:      ar.Token,
		EmployeeID: ar.EmployeeID,
		CompanyID:  ar.CompanyID,
		Email:      email,
	}, nil
}
