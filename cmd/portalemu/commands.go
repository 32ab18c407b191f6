package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/maruel/portalemu/internal/client"
	"github.com/maruel/portalemu/internal/query"
	"github.com/maruel/portalemu/internal/store"
	"github.com/spf13/cobra"
)

func newCollectionsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List collections and their row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.newEnv()
			if err != nil {
				return err
			}
			names := e.store.Names()
			if opts.format == "json" {
				out := make(map[string]int, len(names))
				for _, n := range names {
					out[n] = e.store.Len(n)
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, n := range names {
				fmt.Fprintf(w, "%s\t%d\n", n, e.store.Len(n))
			}
			return w.Flush()
		},
	}
}

// queryOptions are the flags of the query command.
type queryOptions struct {
	columns string

	eq, neq, gte, lte, gt, lt, in []string
	ilike, like, is, notIs, or    []string

	order string
	desc  bool
	limit int
	rng   string

	count, head, single bool

	insert, update string
	remove         bool
}

func newQueryCommand(opts *rootOptions) *cobra.Command {
	q := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query <collection>",
		Short: "Run a query builder pipeline and print the result envelope",
		Long: `Run a query builder pipeline and print the result envelope.

Filter values are parsed as JSON when possible, so 30 is a number, true a
boolean and null a null; anything else is a string.

Example:
  portalemu query enrollments --eq property_id=P1 --ilike 'employee_name=%an%' --count`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.newEnv()
			if err != nil {
				return err
			}
			b, err := q.build(e.client.From(args[0]))
			if err != nil {
				return err
			}
			var res *query.Result
			if q.single {
				res, err = b.Single(cmd.Context())
			} else {
				res, err = b.Execute(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.format, res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.columns, "select", "*", "projection, e.g. 'id, property:properties(name)'")
	f.StringArrayVar(&q.eq, "eq", nil, "field=value equality filter")
	f.StringArrayVar(&q.neq, "neq", nil, "field=value inequality filter")
	f.StringArrayVar(&q.gte, "gte", nil, "field=value lower bound")
	f.StringArrayVar(&q.lte, "lte", nil, "field=value upper bound")
	f.StringArrayVar(&q.gt, "gt", nil, "field=value strict lower bound")
	f.StringArrayVar(&q.lt, "lt", nil, "field=value strict upper bound")
	f.StringArrayVar(&q.in, "in", nil, `field=["a","b"] membership filter`)
	f.StringArrayVar(&q.ilike, "ilike", nil, "field=pattern case-insensitive match, % is the wildcard")
	f.StringArrayVar(&q.like, "like", nil, "field=pattern case-sensitive match")
	f.StringArrayVar(&q.is, "is", nil, "field=value identity filter, usually field=null")
	f.StringArrayVar(&q.notIs, "not-is", nil, "field=value negated identity filter")
	f.StringArrayVar(&q.or, "or", nil, "'a.eq.x,b.eq.y' disjunction")
	f.StringVar(&q.order, "order", "", "field to sort by")
	f.BoolVar(&q.desc, "desc", false, "sort descending")
	f.IntVar(&q.limit, "limit", -1, "maximum number of rows")
	f.StringVar(&q.rng, "range", "", "from:to inclusive row window")
	f.BoolVar(&q.count, "count", false, "report the exact matching count")
	f.BoolVar(&q.head, "head", false, "report only the count")
	f.BoolVar(&q.single, "single", false, "return the first row only")
	f.StringVar(&q.insert, "insert", "", "JSON object or array to insert")
	f.StringVar(&q.update, "update", "", "JSON object to merge into matching rows")
	f.BoolVar(&q.remove, "delete", false, "delete matching rows")
	return cmd
}

// build applies the flags to b.
func (q *queryOptions) build(b *query.Builder) (*query.Builder, error) {
	so := query.SelectOptions{Head: q.head}
	if q.count {
		so.Count = query.CountExact
	}
	b = b.Select(q.columns, so)
	for _, f := range []struct {
		args  []string
		apply func(field string, v any) *query.Builder
	}{
		{q.eq, b.Eq},
		{q.neq, b.Neq},
		{q.gte, b.Gte},
		{q.lte, b.Lte},
		{q.gt, b.Gt},
		{q.lt, b.Lt},
		{q.in, b.In},
		{q.is, b.Is},
		{q.notIs, func(field string, v any) *query.Builder { return b.Not(field, "is", v) }},
	} {
		for _, arg := range f.args {
			field, v, err := splitFilter(arg)
			if err != nil {
				return nil, err
			}
			f.apply(field, parseValue(v))
		}
	}
	for _, arg := range q.ilike {
		field, v, err := splitFilter(arg)
		if err != nil {
			return nil, err
		}
		b = b.Ilike(field, v)
	}
	for _, arg := range q.like {
		field, v, err := splitFilter(arg)
		if err != nil {
			return nil, err
		}
		b = b.Like(field, v)
	}
	for _, expr := range q.or {
		b = b.Or(expr)
	}
	if q.order != "" {
		b = b.Order(q.order, query.OrderOptions{Ascending: !q.desc})
	}
	if q.rng != "" {
		from, to, ok := strings.Cut(q.rng, ":")
		lo, err1 := strconv.Atoi(from)
		hi, err2 := strconv.Atoi(to)
		if !ok || err1 != nil || err2 != nil {
			return nil, fmt.Errorf("invalid --range %q: want from:to", q.rng)
		}
		b = b.Range(lo, hi)
	}
	if q.limit >= 0 {
		b = b.Limit(q.limit)
	}
	mutations := 0
	if q.insert != "" {
		rows, err := parseRows(q.insert)
		if err != nil {
			return nil, fmt.Errorf("invalid --insert: %w", err)
		}
		b = b.Insert(rows...)
		mutations++
	}
	if q.update != "" {
		var patch store.Record
		if err := json.Unmarshal([]byte(q.update), &patch); err != nil {
			return nil, fmt.Errorf("invalid --update: %w", err)
		}
		b = b.Update(patch)
		mutations++
	}
	if q.remove {
		b = b.Delete()
		mutations++
	}
	if mutations > 1 {
		return nil, errors.New("--insert, --update and --delete are mutually exclusive")
	}
	return b, nil
}

func splitFilter(arg string) (string, string, error) {
	field, v, ok := strings.Cut(arg, "=")
	if !ok || field == "" {
		return "", "", fmt.Errorf("invalid filter %q: want field=value", arg)
	}
	return field, v, nil
}

// parseValue decodes s as JSON, falling back to the raw string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func parseRows(s string) ([]store.Record, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var rows []store.Record
		if err := json.Unmarshal([]byte(s), &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	var row store.Record
	if err := json.Unmarshal([]byte(s), &row); err != nil {
		return nil, err
	}
	return []store.Record{row}, nil
}

// printResult writes the envelope as JSON or as a table of rows.
func printResult(w io.Writer, format string, res *query.Result) error {
	if format == "json" {
		return writeJSON(w, res)
	}
	if res.Error != nil {
		fmt.Fprintf(w, "error: %v\n", res.Error)
	}
	if rows := res.Rows(); rows != nil {
		if err := writeTable(w, rows); err != nil {
			return err
		}
	} else if res.Data != nil {
		if err := writeJSON(w, res.Data); err != nil {
			return err
		}
	}
	if res.Count != nil {
		fmt.Fprintf(w, "count: %d\n", *res.Count)
	}
	return nil
}

func writeTable(w io.Writer, rows []store.Record) error {
	var cols []string
	for _, r := range rows {
		for k := range r {
			if !slices.Contains(cols, k) {
				cols = append(cols, k)
			}
		}
	}
	slices.Sort(cols)
	if i := slices.Index(cols, store.FieldID); i > 0 {
		cols = slices.Insert(slices.Delete(cols, i, i+1), 0, store.FieldID)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = cell(r[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func newRPCCommand(opts *rootOptions) *cobra.Command {
	var params string
	cmd := &cobra.Command{
		Use:   "rpc [procedure]",
		Short: "Call a procedure, or list them without arguments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.newEnv()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				for _, n := range e.client.Procedures() {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			}
			var p map[string]any
			if err := json.Unmarshal([]byte(params), &p); err != nil {
				return fmt.Errorf("invalid --params JSON: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), e.client.RPC(cmd.Context(), args[0], p))
		},
	}
	cmd.Flags().StringVar(&params, "params", "{}", "procedure parameters as JSON")
	return cmd
}

func newAuthCommand(opts *rootOptions) *cobra.Command {
	var creds client.Credentials
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in as the demo user and print the session and its claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.newEnv()
			if err != nil {
				return err
			}
			a := e.client.Auth()
			s, err := a.SignInWithPassword(cmd.Context(), creds)
			if err != nil {
				return err
			}
			claims, err := a.Verify(s.AccessToken)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"session": s, "claims": claims})
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "ignored; sign in always succeeds")
	cmd.Flags().StringVar(&creds.Password, "password", "", "ignored; sign in always succeeds")
	return cmd
}

func newSchemaCommand(*rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of fixture files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), store.FixturesSchema())
		},
	}
}
