package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/muniops/internal/gateway"
	"github.com/sells-group/muniops/internal/model"
)

var (
	getLimit     int
	getForceReal bool
	getWhere     []string
	getOrder     string
)

var getCmd = &cobra.Command{
	Use:   "get <entity>",
	Short: "List records of an entity",
	Long:  "Reads records through the gateway, from sample fixtures or the live store depending on the plan, and prints them as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		req, err := buildGetRequest(args[0])
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		out := env.Gateway.Resolve(ctx, req)
		if out.Err != nil {
			return eris.Errorf("get %s: %s", req.Entity, out.Err.Message)
		}

		zap.L().Debug("records fetched",
			zap.String("entity", string(req.Entity)),
			zap.String("route", out.Route.String()),
			zap.Int("count", len(out.Rows)),
		)
		return writeRecords(os.Stdout, out.Rows)
	},
}

func init() {
	getCmd.Flags().IntVar(&getLimit, "limit", 0, "maximum records to return (0 = all)")
	getCmd.Flags().BoolVar(&getForceReal, "force-real", false, "read the live store even on the free plan")
	getCmd.Flags().StringSliceVar(&getWhere, "where", nil, "equality filter field=value (repeatable)")
	getCmd.Flags().StringVar(&getOrder, "order", "", "order field, prefix with - for descending")
	rootCmd.AddCommand(getCmd)
}

func buildGetRequest(name string) (gateway.Request, error) {
	entity, ok := model.ParseEntity(name)
	if !ok {
		return gateway.Request{}, eris.Errorf("unknown entity %q", name)
	}

	read := gateway.ReadOptions{Limit: getLimit}
	if getOrder != "" {
		read.OrderBy = strings.TrimPrefix(getOrder, "-")
		read.Ascending = !strings.HasPrefix(getOrder, "-")
	}
	for _, w := range getWhere {
		field, value, found := strings.Cut(w, "=")
		if !found || field == "" {
			return gateway.Request{}, eris.Errorf("invalid --where %q, want field=value", w)
		}
		if read.Eq == nil {
			read.Eq = map[string]any{}
		}
		read.Eq[field] = value
	}

	return gateway.Request{
		Entity:        entity,
		Op:            model.OpRead,
		Read:          read,
		ForceRealData: getForceReal,
	}, nil
}

func writeRecords(w io.Writer, rows []model.Record) error {
	if rows == nil {
		rows = []model.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(rows), "encode records")
}
