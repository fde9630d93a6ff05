// Package integration provides end-to-end tests for skb commands.
package integration

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
)

var (
	skbBinary     string
	skbBinaryOnce sync.Once
	skbBinaryErr  error
)

// getSKBBinary builds the skb binary once and returns its path.
func getSKBBinary(t *testing.T) string {
	t.Helper()
	skbBinaryOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			skbBinaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		tmpDir, err := os.MkdirTemp("", "skb-test-*")
		if err != nil {
			skbBinaryErr = err
			return
		}
		skbBinary = filepath.Join(tmpDir, "skb")

		cmd := exec.Command("go", "build", "-o", skbBinary, "./cmd/skb")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			skbBinaryErr = &buildError{output: string(output), err: err}
			return
		}
	})
	if skbBinaryErr != nil {
		t.Fatalf("failed to build skb: %v", skbBinaryErr)
	}
	return skbBinary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

type record map[string]any

func metaRecord(asin, title, brand string, alsoBuy ...any) record {
	if alsoBuy == nil {
		alsoBuy = []any{}
	}
	return record{
		"asin": asin, "title": title, "category": []any{"Appliances", "Parts"},
		"price": "$12.50", "brand": brand, "feature": []any{"Fits most models", "Easy install"},
		"rank": "2,345 in Appliances", "details": map[string]any{"Product Dimensions:": "4 x 2 x 1 inches ; 3 ounces"},
		"description": []any{"Replacement water filter."}, "also_buy": alsoBuy, "also_view": []any{},
	}
}

func reviewRecord(asin, summary, text, vote string) record {
	return record{
		"asin": asin, "reviewerID": "R" + asin, "summary": summary, "reviewText": text,
		"vote": vote, "overall": 4.0, "verified": true, "reviewTime": "03 4, 2017",
	}
}

// writeArchive writes records as a gzip-compressed JSON-lines archive.
func writeArchive(t *testing.T, path string, records ...record) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

// setupTestRepo initialises a repository for the Appliances category and
// writes its raw archives. Returns the repository directory.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	repoDir := t.TempDir()

	if out, err := runSKB(t, repoDir, "init", "--categories", "Appliances", "--meta-link-types", "brand"); err != nil {
		t.Fatalf("init failed: %v\nOutput: %s", err, out)
	}

	raw := filepath.Join(repoDir, ".semikb", "raw")
	writeArchive(t, filepath.Join(raw, "meta_Appliances.json.gz"),
		metaRecord("B001", "Water Filter", "by AquaPure", "B002"),
		metaRecord("B002", "Filter Housing", "AquaPure.com", "B001"),
		metaRecord("B003", "Door Gasket", "SealCo"),
	)
	writeArchive(t, filepath.Join(raw, "Appliances.json.gz"),
		reviewRecord("B001", "Great", "Clean water", "12"),
		reviewRecord("B001", "Leaky", "Dripped at first", "1,024"),
		reviewRecord("B002", "Solid", "Holds the filter", "3"),
		reviewRecord("B003", "Fits", "Sealed the door", ""),
	)
	// Q&A archives are Python literals rather than JSON.
	qa := "{'asin': 'B001', 'questionType': 'yes/no', 'answerType': 'Y', 'question': 'Does it fit a 2015 model?', 'answer': 'Yes', 'answerTime': 'Jan 5, 2016'}\n"
	f, err := os.Create(filepath.Join(raw, "qa_Appliances.json.gz"))
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(qa)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	return repoDir
}

// runSKB executes skb with the given args in repoDir. XDG_CONFIG_HOME points
// at an empty directory so the user's global config is ignored.
func runSKB(t *testing.T, repoDir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getSKBBinary(t), args...)
	cmd.Dir = repoDir
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+filepath.Join(repoDir, "config"))
	output, err := cmd.Output()
	return string(output), err
}

func exitCode(err error) int {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

func TestBuildAndCache(t *testing.T) {
	repoDir := setupTestRepo(t)

	var first, second struct {
		Path     string   `json:"path"`
		CacheHit bool     `json:"cache_hit"`
		Nodes    int      `json:"nodes"`
		Types    []string `json:"node_types"`
	}

	out, err := runSKB(t, repoDir, "build")
	if err != nil {
		t.Fatalf("build failed: %v\nOutput: %s", err, out)
	}
	if err := json.Unmarshal([]byte(out), &first); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if first.CacheHit || first.Path != "cache/brand" {
		t.Errorf("first build = %+v", first)
	}
	// Three products and two brands ("AquaPure", "SealCo").
	if first.Nodes != 5 {
		t.Errorf("nodes = %d, want 5", first.Nodes)
	}
	if strings.Join(first.Types, ",") != "product,brand" {
		t.Errorf("node_types = %v", first.Types)
	}

	for _, p := range []string{"processed/base/bundle.jsonl.zst", "processed/cache/brand/bundle.jsonl.zst"} {
		if _, err := os.Stat(filepath.Join(repoDir, ".semikb", p)); err != nil {
			t.Errorf("expected bundle %s: %v", p, err)
		}
	}

	out, err = runSKB(t, repoDir, "build")
	if err != nil {
		t.Fatalf("second build failed: %v\nOutput: %s", err, out)
	}
	if err := json.Unmarshal([]byte(out), &second); err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit || second.Nodes != first.Nodes {
		t.Errorf("second build = %+v, want cache hit", second)
	}
}

func TestGetDocument(t *testing.T) {
	repoDir := setupTestRepo(t)

	out, err := runSKB(t, repoDir, "get", "B001")
	if err != nil {
		t.Fatalf("get failed: %v\nOutput: %s", err, out)
	}
	var doc struct {
		ID       int    `json:"id"`
		Key      string `json:"key"`
		Type     string `json:"type"`
		Document string `json:"document"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if doc.ID != 0 || doc.Key != "B001" || doc.Type != "product" {
		t.Errorf("get = %+v", doc)
	}

	want := []string{
		"- product: Water Filter\n",
		"- brand: AquaPure\n",
		"- dimensions: 4 x 2 x 1 inches\n",
		"- weight: 3 ounces\n",
		"question: \"Does it fit a 2015 model?\"",
		"products also purchased",
		"  brand: AquaPure\n",
	}
	for _, w := range want {
		if !strings.Contains(doc.Document, w) {
			t.Errorf("document missing %q:\n%s", w, doc.Document)
		}
	}
	// The higher-voted review comes first.
	if strings.Index(doc.Document, "Leaky") > strings.Index(doc.Document, "Great") {
		t.Errorf("reviews not ordered by vote:\n%s", doc.Document)
	}

	out, err = runSKB(t, repoDir, "--human", "get", "0", "--no-relations")
	if err != nil {
		t.Fatalf("get --human failed: %v\nOutput: %s", err, out)
	}
	if strings.Contains(out, "- relations:") {
		t.Errorf("--no-relations output contains relations:\n%s", out)
	}
}

func TestNeighborsAndLookup(t *testing.T) {
	repoDir := setupTestRepo(t)

	out, err := runSKB(t, repoDir, "lookup", "B003")
	if err != nil {
		t.Fatalf("lookup failed: %v\nOutput: %s", err, out)
	}
	var lk struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &lk); err != nil || lk.ID != 2 {
		t.Errorf("lookup B003 = %s", out)
	}

	out, err = runSKB(t, repoDir, "neighbors", "B002", "has_brand")
	if err != nil {
		t.Fatalf("neighbors failed: %v\nOutput: %s", err, out)
	}
	var nb struct {
		Neighbors []struct {
			Type  string `json:"type"`
			Title string `json:"title"`
		} `json:"neighbors"`
	}
	if err := json.Unmarshal([]byte(out), &nb); err != nil {
		t.Fatal(err)
	}
	if len(nb.Neighbors) != 1 || nb.Neighbors[0].Type != "brand" || nb.Neighbors[0].Title != "AquaPure" {
		t.Errorf("neighbors = %s", out)
	}

	out, err = runSKB(t, repoDir, "neighbors", "B002", "no_such_relation")
	if err != nil {
		t.Fatalf("neighbors (unknown relation) failed: %v\nOutput: %s", err, out)
	}
	if err := json.Unmarshal([]byte(out), &nb); err != nil || len(nb.Neighbors) != 0 {
		t.Errorf("unknown relation should yield no neighbours: %s", out)
	}

	relTests := []struct {
		args []string
		want bool
	}{
		{[]string{"neighbors", "B001", "also_buy", "--has", "B002"}, true},
		{[]string{"neighbors", "B002", "also_buy", "--has", "B001"}, true},
		{[]string{"neighbors", "B001", "also_buy", "--has", "B003"}, false},
		{[]string{"neighbors", "B001", "also_view", "--has", "B002"}, false},
	}
	for _, tt := range relTests {
		out, err := runSKB(t, repoDir, tt.args...)
		if err != nil {
			t.Fatalf("%v failed: %v\nOutput: %s", tt.args, err, out)
		}
		var rel struct {
			Related bool `json:"related"`
		}
		if err := json.Unmarshal([]byte(out), &rel); err != nil || rel.Related != tt.want {
			t.Errorf("%v = %s, want related %v", tt.args, out, tt.want)
		}
	}

	brandTests := []struct {
		key, brand string
		want       bool
	}{
		{"B002", "aquapure.com", true},
		{"B001", "AquaPure", true},
		{"B003", "AquaPure", false},
	}
	for _, tt := range brandTests {
		out, err := runSKB(t, repoDir, "lookup", tt.key, "--brand", tt.brand)
		if err != nil {
			t.Fatalf("lookup --brand failed: %v\nOutput: %s", err, out)
		}
		var lb struct {
			BrandMatch *bool `json:"brand_match"`
		}
		if err := json.Unmarshal([]byte(out), &lb); err != nil || lb.BrandMatch == nil || *lb.BrandMatch != tt.want {
			t.Errorf("lookup %s --brand %s = %s, want %v", tt.key, tt.brand, out, tt.want)
		}
	}

	if _, err := runSKB(t, repoDir, "lookup", "B999"); exitCode(err) != 4 {
		t.Errorf("lookup of unknown key exit code = %d, want 4", exitCode(err))
	}
}

func TestChunk(t *testing.T) {
	repoDir := setupTestRepo(t)

	tests := []struct {
		attr string
		want string
	}{
		{"weight", "3 ounces"},
		{"dimensions", "4 x 2 x 1 inches"},
		{"qa", `The question is "Does it fit a 2015 model?", and the answer is "Yes". `},
	}
	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			out, err := runSKB(t, repoDir, "chunk", "B001", tt.attr)
			if err != nil {
				t.Fatalf("chunk failed: %v\nOutput: %s", err, out)
			}
			var res struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal([]byte(out), &res); err != nil {
				t.Fatal(err)
			}
			if res.Text != tt.want {
				t.Errorf("chunk %s = %q, want %q", tt.attr, res.Text, tt.want)
			}
		})
	}

	if _, err := runSKB(t, repoDir, "chunk", "B001", "colour"); exitCode(err) != 1 {
		t.Errorf("unknown attribute exit code = %d, want 1", exitCode(err))
	}
}

func TestRebuildAndSearch(t *testing.T) {
	repoDir := setupTestRepo(t)

	if _, err := runSKB(t, repoDir, "search", "filter"); exitCode(err) != 4 {
		t.Errorf("search before rebuild exit code = %d, want 4", exitCode(err))
	}

	out, err := runSKB(t, repoDir, "rebuild")
	if err != nil {
		t.Fatalf("rebuild failed: %v\nOutput: %s", err, out)
	}
	var rb struct {
		Nodes int `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(out), &rb); err != nil || rb.Nodes != 5 {
		t.Errorf("rebuild = %s", out)
	}

	out, err = runSKB(t, repoDir, "search", "gasket")
	if err != nil {
		t.Fatalf("search failed: %v\nOutput: %s", err, out)
	}
	var hits []struct {
		ID  int    `json:"id"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal([]byte(out), &hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Key != "B003" {
		t.Errorf("search gasket = %s", out)
	}
}

func TestErrors(t *testing.T) {
	repoDir := setupTestRepo(t)

	if _, err := runSKB(t, repoDir, "build", "--categories", "Books"); exitCode(err) != 2 {
		t.Errorf("invalid category exit code = %d, want 2", exitCode(err))
	}
	if _, err := runSKB(t, repoDir, "build", "--meta-link-types", "../base"); exitCode(err) != 2 {
		t.Errorf("invalid meta link type exit code = %d, want 2", exitCode(err))
	}
	if _, err := os.Stat(filepath.Join(repoDir, ".semikb", "processed", "base")); !os.IsNotExist(err) {
		t.Errorf("rejected build wrote the base bundle: %v", err)
	}

	if err := os.Remove(filepath.Join(repoDir, ".semikb", "raw", "qa_Appliances.json.gz")); err != nil {
		t.Fatal(err)
	}
	if _, err := runSKB(t, repoDir, "build"); exitCode(err) != 4 {
		t.Errorf("missing archive exit code = %d, want 4", exitCode(err))
	}

	if _, err := runSKB(t, t.TempDir(), "stats"); exitCode(err) != 2 {
		t.Errorf("outside repository exit code = %d, want 2", exitCode(err))
	}
}

func TestConfig(t *testing.T) {
	repoDir := setupTestRepo(t)

	if out, err := runSKB(t, repoDir, "config", "meta-link-types", "brand,price"); err != nil {
		t.Fatalf("config set failed: %v\nOutput: %s", err, out)
	}
	out, err := runSKB(t, repoDir, "--human", "config", "meta_link_types")
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if strings.TrimSpace(out) != "brand,price" {
		t.Errorf("meta_link_types = %q", out)
	}

	if _, err := runSKB(t, repoDir, "config", "store", "s3"); exitCode(err) != 2 {
		t.Errorf("invalid store exit code = %d, want 2", exitCode(err))
	}
	if _, err := runSKB(t, repoDir, "config", "meta-link-types", "brand-price"); exitCode(err) != 2 {
		t.Errorf("invalid meta link type exit code = %d, want 2", exitCode(err))
	}
}
