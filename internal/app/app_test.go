package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/valuegraph/internal/engine"
	"github.com/vk/valuegraph/internal/hcl"
	"github.com/vk/valuegraph/internal/publish"
	"github.com/vk/valuegraph/internal/registry"
	"github.com/vk/valuegraph/internal/testutil"
	"github.com/vk/valuegraph/internal/value"
)

const catalogueHCL = `
catalogue {
  version = "1.3.0"

  market_data {
    values  = ["MarketPrice"]
    schemes = ["CURVE", "SEC"]
  }

  aggregate "PresentValue" {
    properties = ["Currency", "Curve"]
  }
}

function "SwapPV" {
  target_type = "SECURITY"
  priority    = 10
  condition   = target.attributes.security_type == "SWAP"

  output "PresentValue" {
    properties = {
      Currency = target.attributes.currency
      Curve    = "*"
    }
  }

  input "YieldCurve" {
    target     = "PRIMITIVE:CURVE~${target.attributes.currency}"
    properties = { Curve = desired.Curve }
  }
}

function "EquityPV" {
  target_type = "SECURITY"
  condition   = target.attributes.security_type == "EQUITY"

  output "PresentValue" {
    properties = {
      Currency = target.attributes.currency
      Curve    = "*"
    }
  }

  input "MarketPrice" {}
}

function "CurveBuilder" {
  target_type = "PRIMITIVE"

  output "YieldCurve" {
    properties = { Curve = "*" }
  }

  input "MarketPrice" {}
}
`

const universeHCL = `
target "SECURITY" "SEC~SWAP1" {
  attributes = { security_type = "SWAP", currency = "USD" }
}

target "SECURITY" "SEC~EQ1" {
  attributes = { security_type = "EQUITY", currency = "USD" }
}

target "SECURITY" "SEC~BOND1" {
  attributes = { security_type = "BOND", currency = "USD" }
}

target "PORTFOLIO_NODE" "PF~Root" {
  children = ["SECURITY:SEC~SWAP1", "SECURITY:SEC~EQ1"]
}

view "Risk" {
  calc_config "Default" {
    default_properties = "Curve=Discount,Currency=USD"

    requirement "PresentValue" {
      target = "PORTFOLIO_NODE:PF~Root"
    }
    requirement "PresentValue" {
      target = "SECURITY:SEC~BOND1"
    }
  }

  calc_config "Forward" {
    default_properties = "Curve=Forward"

    requirement "PresentValue" {
      target      = "SECURITY:SEC~SWAP1"
      constraints = "Currency=[USD]"
    }
  }
}

view "Pricing" {
  calc_config "Prices" {
    requirement "MarketPrice" {
      target = "SECURITY:SEC~EQ1"
    }
  }
}
`

func fixture(t *testing.T) string {
	t.Helper()
	return WriteFiles(t, map[string]string{
		"catalogue.hcl": catalogueHCL,
		"universe.hcl":  universeHCL,
	})
}

func newTestApp(t *testing.T, mutate func(*Config)) *App {
	t.Helper()
	cfg := Config{ConfigPaths: []string{fixture(t)}, View: "Risk"}
	if mutate != nil {
		mutate(&cfg)
	}
	validated, err := NewConfig(cfg)
	require.NoError(t, err)
	a, _ := SetupAppTest(t, validated)
	return a
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults output to text", cfg: Config{ConfigPaths: []string{"x"}}},
		{name: "missing paths", cfg: Config{}, wantErr: "configuration path"},
		{name: "bad output", cfg: Config{ConfigPaths: []string{"x"}, Output: "yaml"}, wantErr: "unknown output format"},
		{name: "negative workers", cfg: Config{ConfigPaths: []string{"x"}, WorkerCount: -1}, wantErr: "worker count"},
		{name: "bad port", cfg: Config{ConfigPaths: []string{"x"}, HealthcheckPort: 70000}, wantErr: "healthcheck port"},
		{name: "bad publish url", cfg: Config{ConfigPaths: []string{"x"}, PublishURL: "ws:"}, wantErr: "publish URL"},
		{name: "bad defaults", cfg: Config{ConfigPaths: []string{"x"}, DefaultProperties: "Curve=[a,b]"}, wantErr: "default properties"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, OutputText, got.Output)
		})
	}
}

func TestNewApp_LoadsCatalogue(t *testing.T) {
	a := newTestApp(t, nil)

	repo := a.Engine().Repository()
	require.NotNil(t, repo)
	assert.Equal(t, "1.3.0", repo.Version().Label.String())

	for _, id := range []string{"MarketData", "SumPresentValue", "SwapPV", "EquityPV", "CurveBuilder"} {
		_, ok := repo.Lookup(id)
		assert.True(t, ok, "function %s registered", id)
	}
	assert.Len(t, a.Model().Views, 2)
}

func TestNewApp_InvalidConfiguration(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "syntax", src: `function "X" {`},
		{name: "unknown target type", src: `function "X" { target_type = "WIDGET" }`},
		{name: "bad target", src: `target "SECURITY" "nope" {}`},
		{name: "bad version", src: `catalogue { version = "one" }`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := WriteFiles(t, map[string]string{"bad.hcl": tc.src})
			cfg, err := NewConfig(Config{ConfigPaths: []string{dir}})
			require.NoError(t, err)

			_, err = NewApp(&testutil.SafeBuffer{}, cfg, hcl.NewLoader())
			assert.Error(t, err)
		})
	}
}

func TestApp_BuildAll(t *testing.T) {
	a := newTestApp(t, nil)

	builds, err := a.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, builds, 2)

	def := builds[0].Result
	assert.Equal(t, "Risk", builds[0].View)
	assert.Equal(t, "Default", def.CalculationConfiguration)
	// Sum, SwapPV, CurveBuilder, EquityPV and two market data leaves.
	assert.Equal(t, 6, def.Graph.Len())
	require.Len(t, def.Report.Unsatisfied, 1)
	assert.Equal(t, "SECURITY:SEC~BOND1", def.Report.Unsatisfied[0].Requirement.Target.String())
	assert.EqualValues(t, "no_function", def.Report.Unsatisfied[0].Kind)

	root := value.NewRequirement("PresentValue", value.MustParseTargetSpec("PORTFOLIO_NODE:PF~Root"), value.ValueProperties{})
	spec, ok := def.Graph.Output(root)
	require.True(t, ok)
	assert.Equal(t, "Currency=USD,Curve=Discount,Function=SumPresentValue", spec.Properties.String())

	fwd := builds[1].Result
	assert.Equal(t, "Forward", fwd.CalculationConfiguration)
	assert.Equal(t, 3, fwd.Graph.Len())
	assert.Empty(t, fwd.Report.Unsatisfied)
}

func TestApp_BuildAll_Selection(t *testing.T) {
	testCases := []struct {
		name        string
		view        string
		calcConfigs []string
		want        []string
		wantErr     string
	}{
		{name: "every view", want: []string{"Risk/Default", "Risk/Forward", "Pricing/Prices"}},
		{name: "one view", view: "Pricing", want: []string{"Pricing/Prices"}},
		{name: "calc config filter", view: "Risk", calcConfigs: []string{"Forward"}, want: []string{"Risk/Forward"}},
		{name: "unknown view", view: "Nope", wantErr: `unknown view "Nope"`},
		{name: "unknown calc config", view: "Risk", calcConfigs: []string{"Forward", "Prices"}, wantErr: "unknown calc configs"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestApp(t, func(c *Config) {
				c.View = tc.view
				c.CalcConfigs = tc.calcConfigs
			})
			builds, err := a.BuildAll(context.Background())
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			var got []string
			for _, b := range builds {
				got = append(got, b.View+"/"+b.Result.CalculationConfiguration)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("builds mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApp_DefaultPropertiesOverrideCalcConfig(t *testing.T) {
	a := newTestApp(t, func(c *Config) {
		c.CalcConfigs = []string{"Forward"}
		c.DefaultProperties = "Curve=OIS"
	})

	builds, err := a.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, builds, 1)

	out := builds[0].Result.Graph.TerminalOutputs()
	require.Len(t, out, 1)
	v, ok := out[0].Specification.Properties.Value("Curve")
	require.True(t, ok)
	assert.Equal(t, "OIS", v)
}

func TestApp_Run_Formats(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		a := newTestApp(t, nil)
		var out bytes.Buffer
		require.NoError(t, a.Run(context.Background(), &out))

		text := out.String()
		assert.Contains(t, text, "view Risk / calc config Default")
		assert.Contains(t, text, "6 nodes, 1 satisfied, 1 unsatisfied")
		assert.Contains(t, text, "no_function")
		assert.Contains(t, text, "view Risk / calc config Forward")
	})

	t.Run("json", func(t *testing.T) {
		a := newTestApp(t, func(c *Config) { c.Output = OutputJSON })
		var out bytes.Buffer
		require.NoError(t, a.Run(context.Background(), &out))

		var docs []struct {
			View       string `json:"view"`
			CalcConfig string `json:"calc_config"`
			Status     string `json:"status"`
			Repository string `json:"repository"`
			Graph      struct {
				Nodes []json.RawMessage `json:"nodes"`
			} `json:"graph"`
			Report struct {
				Unsatisfied []json.RawMessage `json:"unsatisfied"`
			} `json:"report"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &docs))
		require.Len(t, docs, 2)
		assert.Equal(t, "Default", docs[0].CalcConfig)
		assert.Equal(t, "complete", docs[0].Status)
		assert.Equal(t, "gen-1 (v1.3.0)", docs[0].Repository)
		assert.Len(t, docs[0].Graph.Nodes, 6)
		assert.Len(t, docs[0].Report.Unsatisfied, 1)
		assert.Len(t, docs[1].Graph.Nodes, 3)
	})

	t.Run("dot", func(t *testing.T) {
		a := newTestApp(t, func(c *Config) { c.Output = OutputDOT })
		var out bytes.Buffer
		require.NoError(t, a.Run(context.Background(), &out))

		text := out.String()
		assert.Equal(t, 2, strings.Count(text, "digraph"))
		assert.Contains(t, text, "// view Risk, calc config Forward")
	})
}

func TestApp_Run_Strict(t *testing.T) {
	a := newTestApp(t, func(c *Config) { c.Strict = true })
	err := a.Run(context.Background(), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnsatisfied)

	a = newTestApp(t, func(c *Config) {
		c.Strict = true
		c.CalcConfigs = []string{"Forward"}
	})
	assert.NoError(t, a.Run(context.Background(), &bytes.Buffer{}))
}

func TestApp_Run_Cancelled(t *testing.T) {
	a := newTestApp(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Run(ctx, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestApp_Run_Publishes(t *testing.T) {
	a := newTestApp(t, nil)
	rec := &publish.Recorder{}
	a.publisher = rec

	require.NoError(t, a.Run(context.Background(), &bytes.Buffer{}))

	events := rec.Events()
	require.Len(t, events, 2)
	var doc struct {
		CalcConfig string `json:"calc_config"`
		Status     string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(events[1].Payload, &doc))
	assert.Equal(t, publish.EventGraphBuilt, events[1].Name)
	assert.Equal(t, "Forward", doc.CalcConfig)
	assert.Equal(t, "complete", doc.Status)
	assert.True(t, rec.Closed())
}

func TestApp_Load_Reload(t *testing.T) {
	dir := fixture(t)
	cfg, err := NewConfig(Config{ConfigPaths: []string{dir}})
	require.NoError(t, err)
	a, _ := SetupAppTest(t, cfg)
	require.Equal(t, uint64(1), a.Engine().Version())

	_, err = a.BuildAll(context.Background())
	require.NoError(t, err)

	bump := strings.Replace(catalogueHCL, `"1.3.0"`, `"1.4.0"`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalogue.hcl"), []byte(bump), 0o644))
	require.NoError(t, a.Load(context.Background()))
	assert.Equal(t, uint64(2), a.Engine().Version())
	assert.Equal(t, "1.4.0", a.Engine().Repository().Version().Label.String())

	downgrade := strings.Replace(catalogueHCL, `"1.3.0"`, `"1.0.0"`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalogue.hcl"), []byte(downgrade), 0o644))
	err = a.Load(context.Background())
	assert.ErrorIs(t, err, engine.ErrStaleVersion)
	assert.Equal(t, uint64(2), a.Engine().Version(), "failed reload keeps the live version")
}

func TestApp_ExtraModules(t *testing.T) {
	cfg, err := NewConfig(Config{ConfigPaths: []string{fixture(t)}, View: "Pricing"})
	require.NoError(t, err)
	fn := testutil.NewFunc("Vendor", value.TargetSecurity, "MarketPrice")
	a, _ := SetupAppTest(t, cfg, moduleFunc(func(r *registry.Registry) error {
		return r.Register(fn, registry.Options{Priority: 1 << 31})
	}))

	builds, err := a.BuildAll(context.Background())
	require.NoError(t, err)
	out := builds[0].Result.Graph.TerminalOutputs()
	require.Len(t, out, 1)
	assert.Equal(t, "Vendor", out[0].Specification.FunctionID())
}

func TestApp_HealthcheckEndpoints(t *testing.T) {
	a := newTestApp(t, nil)
	_, err := a.BuildAll(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(a.healthcheckMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK version=1\n", body)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `valuegraph_builds_total{status="complete"} 2`)
	assert.Contains(t, body, "valuegraph_repository_generation 1")
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = newLogger("bogus", "text", &buf)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

type moduleFunc func(r *registry.Registry) error

func (f moduleFunc) Register(r *registry.Registry) error { return f(r) }

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}
