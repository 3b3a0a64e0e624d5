package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/domain-verification/client"
)

// Command groups the API-backed domain verification helpers.
func Command() *cobra.Command {
	opts := &apiOptions{}

	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Register and verify domains through the API",
	}

	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "API base URL (defaults to $DOMAIN_VERIFICATION_API_URL or "+client.DefaultBaseURL+")")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")

	cmd.AddCommand(pushCommand(opts))
	cmd.AddCommand(verifyCommand(opts))
	cmd.AddCommand(checkCommand(opts))
	cmd.AddCommand(statusCommand(opts))
	cmd.AddCommand(instructionsCommand(opts))
	cmd.AddCommand(logsCommand(opts))
	return cmd
}

type apiOptions struct {
	apiURL  string
	timeout time.Duration
}

func (o *apiOptions) client() (*client.Client, error) {
	base := o.apiURL
	if base == "" {
		base = os.Getenv("DOMAIN_VERIFICATION_API_URL")
	}
	return client.New(base, client.WithHTTPClient(&http.Client{Timeout: o.timeout}))
}

func pushCommand(opts *apiOptions) *cobra.Command {
	var (
		in         client.RegisterDomainInput
		customerID string
	)

	c := &cobra.Command{
		Use:   "push",
		Short: "Register a domain or update its IP",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.client()
			if err != nil {
				return err
			}
			if customerID != "" {
				in.CustomerID = &customerID
			}
			res, err := api.RegisterDomain(commandContext(cmd), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	c.Flags().StringVar(&in.Domain, "domain", "", "Domain name")
	c.Flags().StringVar(&in.IP, "ip", "", "IP address the domain should route to")
	c.Flags().StringVar(&customerID, "customer-id", "", "Owning customer (optional)")
	_ = c.MarkFlagRequired("domain")
	_ = c.MarkFlagRequired("ip")
	return c
}

func verifyCommand(opts *apiOptions) *cobra.Command {
	var in client.VerificationInput

	c := &cobra.Command{
		Use:   "verify",
		Short: "Issue a verification token and print the DNS records to publish",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.client()
			if err != nil {
				return err
			}
			res, err := api.GenerateVerificationToken(commandContext(cmd), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	bindVerificationFlags(c, &in)
	return c
}

func checkCommand(opts *apiOptions) *cobra.Command {
	var in client.VerificationInput

	c := &cobra.Command{
		Use:   "check",
		Short: "Check the published DNS records and complete verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.client()
			if err != nil {
				return err
			}
			res, err := api.CheckDomainVerification(commandContext(cmd), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	bindVerificationFlags(c, &in)
	return c
}

func statusCommand(opts *apiOptions) *cobra.Command {
	var q client.DomainQuery

	c := &cobra.Command{
		Use:   "status",
		Short: "Show the verification status of a domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.client()
			if err != nil {
				return err
			}
			res, err := api.GetDomainStatus(commandContext(cmd), q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	bindQueryFlags(c, &q)
	return c
}

func instructionsCommand(opts *apiOptions) *cobra.Command {
	var q client.InstructionsQuery

	c := &cobra.Command{
		Use:   "instructions",
		Short: "Print the DNS records for the pending token",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.client()
			if err != nil {
				return err
			}
			res, err := api.GetVerificationInstructions(commandContext(cmd), q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	bindQueryFlags(c, &q.DomainQuery)
	c.Flags().StringVar(&q.ServiceHost, "service-host", "", "CNAME target (defaults to the server setting)")
	c.Flags().StringVar(&q.TxtRecordVerifyKey, "txt-key", "", "TXT record label (defaults to the server setting)")
	return c
}

func logsCommand(opts *apiOptions) *cobra.Command {
	var q client.DomainQuery

	c := &cobra.Command{
		Use:   "logs",
		Short: "List the verification audit log of a domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.client()
			if err != nil {
				return err
			}
			res, err := api.ListVerificationLogs(commandContext(cmd), q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	bindQueryFlags(c, &q)
	return c
}

func bindVerificationFlags(c *cobra.Command, in *client.VerificationInput) {
	c.Flags().StringVar(&in.Domain, "domain", "", "Domain name")
	c.Flags().StringVar(&in.CustomerID, "customer-id", "", "Owning customer")
	c.Flags().StringVar(&in.ServiceHost, "service-host", "", "CNAME target (defaults to the server setting)")
	c.Flags().StringVar(&in.TxtRecordVerifyKey, "txt-key", "", "TXT record label (defaults to the server setting)")
	_ = c.MarkFlagRequired("domain")
	_ = c.MarkFlagRequired("customer-id")
}

func bindQueryFlags(c *cobra.Command, q *client.DomainQuery) {
	c.Flags().StringVar(&q.Domain, "domain", "", "Domain name")
	c.Flags().StringVar(&q.CustomerID, "customer-id", "", "Owning customer")
	_ = c.MarkFlagRequired("domain")
	_ = c.MarkFlagRequired("customer-id")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
