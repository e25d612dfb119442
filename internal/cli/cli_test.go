package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("RESUME_ASSISTANT_DEEPSEEK_API_KEY", "")
	t.Setenv("RESUME_ASSISTANT_DATABASE_PATH", filepath.Join(dir, "data.db"))
	t.Setenv("RESUME_ASSISTANT_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("RESUME_ASSISTANT_LOG_FILE", filepath.Join(dir, "logs", "app.log"))
	t.Setenv("RESUME_ASSISTANT_STATS_FILE", filepath.Join(dir, "stats.json"))
	t.Setenv("RESUME_ASSISTANT_LOG_LEVEL", "ERROR")
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(""), &out, &errOut)
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	require.NoError(t, err, "args: %v", args)
	return out
}

func TestJobsCommands(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "jobs", "add", "--title", "Go工程师", "--company", "测试公司",
		"--description", "后端开发", "--requirements", "熟悉Go", "--salary", "20-30K")
	assert.Contains(t, out, "Go工程师")
	assert.True(t, strings.HasPrefix(out, "1\tactive"))

	_, err := runCLI(t, "jobs", "add", "--title", "缺少公司")
	assert.Error(t, err)

	mustRun(t, "jobs", "status", "1", "applied")
	out = mustRun(t, "jobs", "list", "--status", "applied")
	assert.Contains(t, out, "1\tapplied\tGo工程师")

	out = mustRun(t, "jobs", "show", "1")
	var job map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	assert.Equal(t, "测试公司", job["company"])

	_, err = runCLI(t, "jobs", "status", "1", "unknown")
	assert.Error(t, err)

	mustRun(t, "jobs", "delete", "1")
	_, err = runCLI(t, "jobs", "delete", "1")
	assert.Error(t, err)

	out = mustRun(t, "jobs", "samples")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseID(tt.in, "id")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResumeAnalyzeGreet(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("张三\n电话: 13800138000\n技能\nGo, Redis, MySQL\n"), 0o600))

	mustRun(t, "jobs", "samples")
	out := mustRun(t, "resume", "upload", path, "--name", "我的简历")
	assert.Contains(t, out, "* 1\t我的简历")

	out = mustRun(t, "resume", "list")
	assert.Contains(t, out, "我的简历")

	out = mustRun(t, "analyze", "--job", "1")
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 74, res["overall_score"], 1e-9)

	out = mustRun(t, "greet", "--job", "1", "--save")
	assert.Contains(t, out, "(source: template)")
	assert.Contains(t, out, "version 1")

	out = mustRun(t, "greet", "--job", "1", "--history")
	assert.Contains(t, out, "v1\t")

	out = mustRun(t, "db", "stats")
	var st map[string]int64
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, int64(3), st["jobs_count"])
	assert.Equal(t, int64(1), st["greetings_count"])
}

func TestAgentsCommands(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "agents", "list")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 5)

	out = mustRun(t, "agents", "recommend", "招聘销售经理")
	assert.Contains(t, out, "\tmanagement\t")

	out = mustRun(t, "agents", "create", "--name", "我的Agent", "--type", "technical",
		"--template", "职位: {job_description}\n简历: {resume_content}")
	assert.Contains(t, out, "agent 6 created")

	out = mustRun(t, "agents", "list", "--builtin=false")
	assert.Contains(t, out, "我的Agent")

	_, err := runCLI(t, "agents", "delete", "1")
	assert.Error(t, err, "builtin agents cannot be deleted")
	mustRun(t, "agents", "delete", "6")
}

func TestSettingsAndSites(t *testing.T) {
	setupEnv(t)

	mustRun(t, "settings", "set", "theme", "light")
	assert.Equal(t, "light\n", mustRun(t, "settings", "get", "theme"))
	assert.Contains(t, mustRun(t, "settings", "list"), "theme=light")

	_, err := runCLI(t, "settings", "get", "missing")
	assert.Error(t, err)

	out := mustRun(t, "sites")
	assert.Equal(t, "boss\nlagou\nzhilian\nliepin\n51job\n", out)
}
