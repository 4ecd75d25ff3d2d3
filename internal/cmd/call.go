package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apigateway "github.com/hadivarp/apigateway"
)

var (
	callMethod  string
	callParams  []string
	callData    string
	callHeaders []string
	callRepeat  int
	callNoCache bool
	callStats   bool
	callRaw     bool
)

var callCmd = &cobra.Command{
	Use:   "call <provider> <endpoint>",
	Short: "Send a request to a provider",
	Example: `  gatewayctl call unsplash search/photos --param query=mountains --param per_page=5 --builtin
  gatewayctl call mailchimp lists/abc123/members --method POST --data '{"email_address":"a@b.c","status":"subscribed"}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		req, err := buildCallRequest(args[1])
		if err != nil {
			return err
		}

		repeat := callRepeat
		if repeat < 1 {
			repeat = 1
		}
		out := cmd.OutOrStdout()
		var lastErr error
		for i := 0; i < repeat; i++ {
			resp, err := s.gateway.Do(cmd.Context(), args[0], req)
			if err != nil {
				s.logger.Warn("call failed", zap.Int("iteration", i+1), zap.Error(err))
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				lastErr = err
				continue
			}
			if err := printResponse(out, resp, callRaw); err != nil {
				return err
			}
		}

		if callStats {
			stats, _ := s.gateway.Stats(args[0])
			_, _ = fmt.Fprintln(out, renderStats([]apigateway.ProviderStats{stats}, s.gateway.CacheStats()))
		}
		return lastErr
	},
}

func init() {
	callCmd.Flags().StringVarP(&callMethod, "method", "X", "GET", "HTTP method")
	callCmd.Flags().StringArrayVarP(&callParams, "param", "p", nil, "request parameter key=value (repeatable)")
	callCmd.Flags().StringVarP(&callData, "data", "d", "", "request body; JSON is sent as a document, anything else as-is")
	callCmd.Flags().StringArrayVarP(&callHeaders, "header", "H", nil, "extra header 'Name: value' (repeatable)")
	callCmd.Flags().IntVar(&callRepeat, "repeat", 1, "send the request this many times")
	callCmd.Flags().BoolVar(&callNoCache, "no-cache", false, "bypass the response cache")
	callCmd.Flags().BoolVar(&callStats, "stats", false, "print provider stats afterwards")
	callCmd.Flags().BoolVar(&callRaw, "raw", false, "print the raw response body")
	rootCmd.AddCommand(callCmd)
}

func buildCallRequest(endpoint string) (*apigateway.Request, error) {
	req := &apigateway.Request{
		Method:   strings.ToUpper(callMethod),
		Endpoint: endpoint,
		NoCache:  callNoCache,
	}

	if len(callParams) > 0 {
		req.Params = make(map[string]any, len(callParams))
		for _, p := range callParams {
			k, v, ok := strings.Cut(p, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid --param %q: expected key=value", p)
			}
			req.Params[k] = v
		}
	}

	if len(callHeaders) > 0 {
		req.Headers = make(map[string]string, len(callHeaders))
		for _, h := range callHeaders {
			k, v, ok := strings.Cut(h, ":")
			if !ok || strings.TrimSpace(k) == "" {
				return nil, fmt.Errorf("invalid --header %q: expected 'Name: value'", h)
			}
			req.Headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}

	if callData != "" {
		var doc any
		if err := json.Unmarshal([]byte(callData), &doc); err == nil {
			req.Body = doc
		} else {
			req.Body = callData
		}
	}
	return req, nil
}

func printResponse(w io.Writer, resp *apigateway.Response, raw bool) error {
	source := "network"
	if resp.FromCache {
		source = "cache"
	}
	if _, err := fmt.Fprintf(w, "# %d (%s, %d attempt(s))\n", resp.StatusCode, source, resp.Attempts); err != nil {
		return err
	}
	if s, ok := resp.Text(); ok || raw {
		if raw {
			s = string(resp.Raw)
		}
		_, err := fmt.Fprintln(w, s)
		return err
	}
	payload, err := json.MarshalIndent(resp.Data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}
