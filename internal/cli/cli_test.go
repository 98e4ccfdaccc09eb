package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/lanegrid/pkg/cache"
	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/pipeline"
	"github.com/matzehuels/lanegrid/pkg/render"
	"github.com/matzehuels/lanegrid/pkg/rows"
	"github.com/matzehuels/lanegrid/pkg/session"
)

const ordersCSV = `Name,Documentation,Outputs,Inputs,Actor
Init,,OK,,
Process,Does the work,Done,OK,Worker
`

// testEnv isolates a CLI run: config, cache and project store live in a
// temporary directory and stdout is captured.
type testEnv struct {
	t     *testing.T
	dir   string
	store string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	quietSpinner(t)
	return &testEnv{t: t, dir: dir, store: filepath.Join(dir, "projects")}
}

func (e *testEnv) file(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.t.Fatal(err)
	}
	return path
}

// run executes one command line and returns what it printed to stdout.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	var out, logs bytes.Buffer
	old := stdout
	stdout = &out
	defer func() { stdout = old }()

	root := New(&logs, LogInfo).RootCommand()
	root.SetArgs(append([]string{"--store", e.store}, args...))
	root.SetOut(&out)
	root.SetErr(&logs)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestImportCommand(t *testing.T) {
	env := newTestEnv(t)
	path := env.file("orders.csv", ordersCSV)

	out := env.mustRun("import", path, "-p", "billing")
	if !strings.Contains(out, "imported 2 of 2 rows into billing (0 reused, 3 ports added, 2 lanes)") {
		t.Errorf("first import output:\n%s", out)
	}
	if !strings.Contains(out, "render billing") {
		t.Errorf("missing next step:\n%s", out)
	}

	out = env.mustRun("import", path, "-p", "billing")
	if !strings.Contains(out, "(2 reused, 0 ports added, 2 lanes)") || !strings.Contains(out, "version 2") {
		t.Errorf("re-import output:\n%s", out)
	}
}

func TestImportCommandOutput(t *testing.T) {
	env := newTestEnv(t)
	path := env.file("orders.csv", ordersCSV)
	target := filepath.Join(env.dir, "orders.json")

	env.mustRun("import", path, "--activity", "Intake", "--container", "Billing/Q1", "-o", target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"activity_id"`) || !strings.Contains(string(data), "Intake") {
		t.Errorf("document does not describe the activity:\n%s", data)
	}

	out := env.mustRun("inspect", pipeline.DefaultProject)
	if !strings.Contains(out, "default/Billing/Q1/Intake") {
		t.Errorf("inspect output:\n%s", out)
	}
}

func TestImportCommandFailureLeavesStoreEmpty(t *testing.T) {
	env := newTestEnv(t)
	path := env.file("broken.csv", "Name,Foo\nA,B\n")

	_, err := env.run("import", path, "-p", "billing")
	if !errors.Is(err, errors.ErrCodeSchema) {
		t.Fatalf("err = %v, want SCHEMA_ERROR", err)
	}
	out := env.mustRun("store", "list")
	if !strings.Contains(out, "No projects stored") {
		t.Errorf("store list after failed import:\n%s", out)
	}
}

func TestRenderCommand(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("import", env.file("orders.csv", ordersCSV), "-p", "billing")

	out := env.mustRun("render", "billing", "-f", "dot")
	if !strings.Contains(out, `digraph "orders"`) {
		t.Errorf("dot on stdout:\n%s", out)
	}

	base := filepath.Join(env.dir, "out", "diagram.svg")
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		t.Fatal(err)
	}
	env.mustRun("render", "billing", "-a", "orders", "-f", "svg,json", "-o", base, "--title", "Orders")
	for _, name := range []string{"diagram.svg", "diagram.json"} {
		if _, err := os.Stat(filepath.Join(env.dir, "out", name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	_, err := env.run("render", "missing")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("render of a missing project: %v", err)
	}
	_, err = env.run("render", "billing", "-f", "gif")
	if !errors.Is(err, errors.ErrCodeInvalidFmt) {
		t.Errorf("unknown format: %v", err)
	}
}

func TestInspectCommand(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("import", env.file("orders.csv", ordersCSV), "-p", "billing")

	out := env.mustRun("inspect", "billing")
	for _, want := range []string{"orders", "billing/orders"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect lacks %q:\n%s", want, out)
		}
	}

	out = env.mustRun("inspect", "billing", "-a", "orders")
	for _, want := range []string{"Init", "Process", "Worker", "OK", "Done"} {
		if !strings.Contains(out, want) {
			t.Errorf("node table lacks %q:\n%s", want, out)
		}
	}

	out = env.mustRun("inspect", "billing", "--json")
	if !strings.Contains(out, `"activity_id"`) {
		t.Errorf("json output:\n%s", out)
	}
}

func TestStoreCommand(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("import", env.file("orders.csv", ordersCSV), "-p", "billing")

	if out := env.mustRun("store", "list"); !strings.Contains(out, "billing") {
		t.Errorf("store list:\n%s", out)
	}
	if out := env.mustRun("store", "path"); strings.TrimSpace(out) != env.store {
		t.Errorf("store path = %q, want %q", out, env.store)
	}
	if out := env.mustRun("store", "delete", "billing"); !strings.Contains(out, "Deleted billing") {
		t.Errorf("store delete:\n%s", out)
	}
	if _, err := env.run("store", "delete", "billing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestConfigCommand(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("config", "show")
	for _, want := range []string{"[parse]", "[layout]", "[store]", "[server]"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show lacks %s:\n%s", want, out)
		}
	}

	path := filepath.Join(env.dir, "lanegrid.toml")
	env.mustRun("config", "init", path)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if _, err := env.run("config", "init", path); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("init over existing file: %v", err)
	}
	env.mustRun("--config", path, "store", "list")
}

func TestCacheCommand(t *testing.T) {
	env := newTestEnv(t)
	want := filepath.Join(env.dir, "cache", appName)

	if out := env.mustRun("cache", "path"); strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", out, want)
	}
	if out := env.mustRun("cache", "clear"); !strings.Contains(out, "Cache is empty") {
		t.Errorf("clear of a missing cache:\n%s", out)
	}

	env.mustRun("import", env.file("orders.csv", ordersCSV), "-o", filepath.Join(env.dir, "orders.svg"))
	if out := env.mustRun("cache", "clear"); !strings.Contains(out, "Cleared artifact cache") {
		t.Errorf("cache clear:\n%s", out)
	}
}

func TestImportPrefixFiltersSpreadsheetRows(t *testing.T) {
	env := newTestEnv(t)
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for axis, v := range map[string]string{
		"A1": "Name", "B1": "Outputs",
		"A2": "Step Init", "B2": "OK",
		"A3": "Action Review",
		"A4": "Step Ship",
	} {
		if err := f.SetCellValue(sheet, axis, v); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(env.dir, "steps.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out := env.mustRun("import", path, "-p", "plain")
	if !strings.Contains(out, "imported 1 of 1 rows into plain") {
		t.Errorf("default prefix output:\n%s", out)
	}
	out = env.mustRun("import", path, "-p", "steps", "--prefix", "Step")
	if !strings.Contains(out, "imported 2 of 2 rows into steps") {
		t.Errorf("--prefix Step output:\n%s", out)
	}

	usage := New(io.Discard, LogInfo).importCommand().Flags().Lookup("prefix").Usage
	if !strings.Contains(usage, rows.DefaultActionPrefix) || strings.Contains(usage, "sub-action") {
		t.Errorf("--prefix usage = %q", usage)
	}
}

func TestApplyStoreFlag(t *testing.T) {
	tests := []struct {
		flag        string
		wantBackend string
		wantDir     string
	}{
		{"memory", session.BackendMemory, ""},
		{"redis", session.BackendRedis, ""},
		{"mongo", session.BackendMongo, ""},
		{"file", session.BackendFile, ""},
		{"/tmp/projects", session.BackendFile, "/tmp/projects"},
	}
	for _, tt := range tests {
		cfg := session.DefaultConfig()
		applyStoreFlag(&cfg, tt.flag)
		if cfg.Backend != tt.wantBackend || cfg.Dir != tt.wantDir {
			t.Errorf("applyStoreFlag(%q) = %s %q", tt.flag, cfg.Backend, cfg.Dir)
		}
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Billing", []string{"Billing"}},
		{"Billing/Q1", []string{"Billing", "Q1"}},
		{" /Billing// Q1 /", []string{"Billing", "Q1"}},
	}
	for _, tt := range tests {
		if got := splitPath(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		flag, output string
		want         []render.Format
		wantErr      bool
	}{
		{"", "", []render.Format{render.FormatSVG}, false},
		{"", "out.dot", []render.Format{render.FormatDOT}, false},
		{"svg,PNG, json", "", []render.Format{render.FormatSVG, render.FormatPNG, render.FormatJSON}, false},
		{"svg,svg", "", []render.Format{render.FormatSVG}, false},
		{"svg,gif", "", nil, true},
	}
	for _, tt := range tests {
		got, err := parseFormats(tt.flag, tt.output)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFormats(%q) error = %v", tt.flag, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.flag, got, tt.want)
		}
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name    string
		formats []render.Format
		output  string
		want    map[render.Format]string
	}{
		{
			name:    "single format keeps output",
			formats: []render.Format{render.FormatPNG},
			output:  "x/diagram.image",
			want:    map[render.Format]string{render.FormatPNG: "x/diagram.image"},
		},
		{
			name:    "single format without output",
			formats: []render.Format{render.FormatPDF},
			want:    map[render.Format]string{render.FormatPDF: "billing.pdf"},
		},
		{
			name:    "several formats share a base",
			formats: []render.Format{render.FormatSVG, render.FormatGraphviz, render.FormatDOT},
			output:  "out/diagram.svg",
			want: map[render.Format]string{
				render.FormatSVG:      "out/diagram.svg",
				render.FormatGraphviz: "out/diagram_graphviz.svg",
				render.FormatDOT:      "out/diagram.dot",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outputPaths(tt.formats, tt.output, "billing"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("outputPaths() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServerRunnerRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(&bytes.Buffer{}, LogInfo)
	c.Config.Store = session.Config{Backend: session.BackendRedis, RedisAddr: mr.Addr()}

	ctx := context.Background()
	runner, err := c.serverRunner(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := runner.Cache.(*cache.RedisCache); !ok {
		t.Fatalf("cache = %T, want *cache.RedisCache", runner.Cache)
	}

	res, err := runner.Import(ctx, strings.NewReader(ordersCSV), pipeline.Options{
		Project:    "billing",
		SourceName: "orders.csv",
		Formats:    []render.Format{render.FormatSVG},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Version != 1 {
		t.Errorf("version = %d", res.Version)
	}

	var artifacts int
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, artifactPrefix) {
			artifacts++
		}
	}
	if artifacts != 1 {
		t.Errorf("artifact keys = %d, want 1 (keys %v)", artifacts, mr.Keys())
	}
	if err := runner.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
