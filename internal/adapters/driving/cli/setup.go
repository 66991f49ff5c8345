package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/conduit-cli/internal/adapters/driven/oauth"
	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/conduit-cli/internal/core/services"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	codeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var setupCmd = &cobra.Command{
	Use:   "setup <connector>",
	Short: "Configure credentials for a connector",
	Long: `Interactively configure a connector's credentials.

The connector's schema drives the prompts; secret fields are read without
echo. OAuth connectors continue into the device flow: you get a code to
type at a verification URL while conduit polls for approval. Ctrl-C
cancels without writing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	handle, err := registry.Get(args[0])
	if err != nil {
		return err
	}
	name := args[0]

	var schema domain.ConfigSchema
	var authType domain.AuthType
	var credentialKey string
	handle.Do(func(c driven.Connector) error {
		schema = c.ConfigSchema()
		authType = c.AuthType()
		credentialKey = c.CredentialKey()
		return nil
	})

	if authType == domain.AuthNone {
		cmd.Printf("%s needs no credentials.\n", name)
		return nil
	}

	cmd.Println(headingStyle.Render("Setup: " + name))
	details, err := promptDetails(cmd, schema)
	if err != nil {
		return err
	}

	if err := handle.Do(func(c driven.Connector) error {
		return c.SetAuthDetails(details)
	}); err != nil {
		return err
	}
	if err := authStore.Save(name, details); err != nil {
		return err
	}
	if credentialKey != name {
		if err := authStore.Save(credentialKey, details); err != nil {
			return err
		}
	}

	if authType == domain.AuthOAuth {
		if err := runDeviceFlow(cmd, handle); err != nil {
			return err
		}
	}

	if err := handle.Do(func(c driven.Connector) error {
		return c.TestAuth(cmd.Context())
	}); err != nil {
		cmd.Println(failStyle.Render("Authentication test failed: " + err.Error()))
		return err
	}
	cmd.Println(okStyle.Render("Credentials verified."))
	cmd.Printf("Stored in %s\n", authStore.Path())
	return nil
}

// promptDetails walks the schema fields in order, echoing everything except
// secrets.
func promptDetails(cmd *cobra.Command, schema domain.ConfigSchema) (domain.AuthDetails, error) {
	reader := bufio.NewReader(os.Stdin)
	details := domain.AuthDetails{}

	for _, field := range schema.Fields {
		label := field.Label
		if label == "" {
			label = field.Name
		}
		suffix := ""
		if !field.Required {
			suffix = " (optional)"
		}
		if field.Type == domain.FieldSelect {
			suffix = fmt.Sprintf(" [%s]%s", strings.Join(field.Options, "/"), suffix)
		}
		cmd.Printf("%s%s: ", label, suffix)

		var value string
		var err error
		if field.Type == domain.FieldSecret {
			raw, pwErr := term.ReadPassword(int(os.Stdin.Fd()))
			cmd.Println()
			value, err = string(raw), pwErr
		} else {
			value, err = reader.ReadString('\n')
			value = strings.TrimSpace(value)
		}
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}

		if value == "" {
			if field.Required {
				return nil, domain.InvalidInputf("%s is required", field.Name)
			}
			continue
		}
		if err := validateField(field, value); err != nil {
			return nil, err
		}
		details[field.Name] = value
	}
	return details, nil
}

func validateField(field domain.Field, value string) error {
	switch field.Type {
	case domain.FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return domain.InvalidInputf("%s must be a number", field.Name)
		}
	case domain.FieldBoolean:
		if value != "true" && value != "false" {
			return domain.InvalidInputf("%s must be true or false", field.Name)
		}
	case domain.FieldSelect:
		for _, option := range field.Options {
			if value == option {
				return nil
			}
		}
		return domain.InvalidInputf("%s must be one of: %s", field.Name, strings.Join(field.Options, ", "))
	}
	return nil
}

// runDeviceFlow starts the device flow through the connector's internal
// auth tools and polls until approval, denial or expiry. The sleep between
// polls honors the command context so Ctrl-C interrupts it.
func runDeviceFlow(cmd *cobra.Command, handle *services.Handle) error {
	ctx := cmd.Context()

	var start *domain.CallToolResult
	err := handle.Do(func(c driven.Connector) error {
		var callErr error
		start, callErr = c.CallTool(ctx, domain.AuthStartTool, nil)
		return callErr
	})
	if err != nil {
		return err
	}
	info, ok := start.StructuredContent.(map[string]any)
	if !ok {
		return domain.ParseErrorf("unexpected auth_start result shape")
	}

	userCode, _ := info["user_code"].(string)
	verificationURI, _ := info["verification_uri"].(string)
	interval := 5 * time.Second
	if secs, ok := info["interval_seconds"].(float64); ok && secs > 0 {
		interval = time.Duration(secs) * time.Second
	}

	cmd.Println()
	cmd.Printf("Visit %s and enter code %s\n", verificationURI, codeStyle.Render(userCode))
	cmd.Println("Waiting for approval (Ctrl-C to cancel)...")

	for {
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		var poll *domain.CallToolResult
		err := handle.Do(func(c driven.Connector) error {
			var callErr error
			poll, callErr = c.CallTool(ctx, domain.AuthPollTool, nil)
			return callErr
		})
		if err != nil {
			return err
		}
		status := pollStatus(poll)
		switch status {
		case oauth.PollAuthorized:
			cmd.Println(okStyle.Render("Authorized."))
			return nil
		case oauth.PollSlowDown:
			interval += 5 * time.Second
		case oauth.PollDenied:
			return errors.New("authorization was denied")
		case oauth.PollExpired:
			return errors.New("the device code expired; run setup again")
		case oauth.PollPending:
			// keep waiting
		}
	}
}

func pollStatus(result *domain.CallToolResult) oauth.PollStatus {
	payload, ok := result.StructuredContent.(map[string]any)
	if !ok {
		return oauth.PollPending
	}
	status, _ := payload["status"].(string)
	return oauth.PollStatus(status)
}
