// File: cmd/actions.go
package cmd

import (
	"context"
	"fmt"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav/internal/observability"
	"github.com/xkilldash9x/webnav/internal/webnav"
)

// runAction opens the page, runs one action and writes its payload to stdout.
func runAction(cmd *cobra.Command, action webnav.Action, args interface{}) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding %s arguments: %w", action, err)
	}
	return runRawAction(cmd, action, raw)
}

func runRawAction(cmd *cobra.Command, action webnav.Action, raw []byte) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	src, err := sourceFrom(cmd)
	if err != nil {
		return err
	}
	logger := observability.GetLogger()

	ctx := cmd.Context()
	if timeout := cfg.Command().Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	page, release, err := openPage(ctx, cfg, src, logger)
	if err != nil {
		return err
	}
	defer release()

	result, err := webnav.Invoke(ctx, page, action, raw)
	if _, isPageError := webnav.KindOf(err); err != nil && !isPageError {
		// Infrastructure failures are not part of the payload contract.
		return fmt.Errorf("%s: %w", action, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(webnav.EncodeOutcome(result, err)))
	if err != nil {
		logger.Debug("Action failed", zap.String("action", string(action)), zap.Error(err))
		return ErrActionFailed
	}
	return nil
}

type queryCmdSpec struct {
	use    string
	short  string
	action webnav.Action
}

var (
	actionFocusCmd = queryCmdSpec{"focus", "Move focus to an element", webnav.ActionFocus}
	actionHoverCmd = queryCmdSpec{"hover", "Hover an element and report its text", webnav.ActionHover}
	actionClearCmd = queryCmdSpec{"clear", "Empty an input's value", webnav.ActionClear}
)

func addQueryFlags(c *cobra.Command, q *webnav.Query) {
	c.Flags().StringVarP(&q.Selector, "selector", "s", "", "CSS selector of the target")
	c.Flags().StringVarP(&q.Text, "text", "t", "", "text contained by the target")
}

func newQueryCmd(spec queryCmdSpec) *cobra.Command {
	var q webnav.Query
	c := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, spec.action, q)
		},
	}
	addQueryFlags(c, &q)
	return c
}

func newToggleCmd(use string, checked bool) *cobra.Command {
	var q webnav.Query
	c := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Set a checkbox or radio to checked=%t", checked),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, webnav.ActionToggle, webnav.ToggleRequest{Query: q, Checked: checked})
		},
	}
	addQueryFlags(c, &q)
	return c
}

func newRefCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ref <ref>",
		Short: "Resolve a snapshot reference to a selector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, webnav.ActionResolveRef, map[string]string{"ref": args[0]})
		},
	}
}

func newDialogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialog <accept|dismiss> [text]",
		Short: "Configure how alert, confirm and prompt are answered",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := webnav.DialogConfig{Action: webnav.DialogAction(args[0])}
			if len(args) == 2 {
				cfg.Text = args[1]
			}
			return runAction(cmd, webnav.ActionDialog, cfg)
		},
	}
}

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate JavaScript in the page and classify the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, webnav.ActionEvaluate, map[string]string{"expression": strings.Join(args, " ")})
		},
	}
}

func newCallCmd() *cobra.Command {
	names := make([]string, 0, len(webnav.Actions()))
	for _, a := range webnav.Actions() {
		names = append(names, string(a))
	}
	return &cobra.Command{
		Use:   "call <action> [json-args]",
		Short: "Run any action with raw JSON arguments",
		Long:  "Run any action with raw JSON arguments. Actions: " + strings.Join(names, ", ") + ".",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			if len(args) == 2 {
				raw = []byte(args[1])
			}
			return runRawAction(cmd, webnav.Action(args[0]), raw)
		},
	}
}
