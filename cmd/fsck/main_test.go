package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/weberc2/fsck/pkg/logger"
	"github.com/weberc2/fsck/pkg/report"
	"github.com/weberc2/fsck/pkg/testsupport"
	"github.com/weberc2/fsck/pkg/types"
	"gopkg.in/yaml.v2"
)

type harness struct {
	runner  runner
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	objects testsupport.ObjectStoreFake
	ctx     context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	config := Config{
		LogLevel:      "error",
		LogFormat:     logger.FormatText,
		LostFoundName: "lost+found",
		ReportStore:   ReportStoreS3,
		ReportBucket:  "reports",
		ReportPrefix:  "fsck-reports",
	}

	log, err := logger.New("error", logger.FormatText, io.Discard)
	if err != nil {
		t.Fatalf("logger.New(): unexpected err: %v", err)
	}

	clock := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	h := harness{objects: testsupport.ObjectStoreFake{}}
	h.ctx = logger.Set(context.Background(), log)
	h.runner = runner{
		config: &config,
		stdout: &h.stdout,
		stderr: &h.stderr,
		now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		objects: h.objects,
	}
	return &h
}

// run invokes the app and returns the exit code and the stderr output.
func (h *harness) run(args ...string) (int, string) {
	h.stdout.Reset()
	h.stderr.Reset()
	code := h.runner.run(h.ctx, append([]string{appName}, args...))
	return code, h.stderr.String()
}

func (h *harness) reports(t *testing.T, image string) []report.Report {
	t.Helper()
	store := report.ObjectStore{
		Store:  h.objects,
		Bucket: h.runner.config.ReportBucket,
		Prefix: h.runner.config.ReportPrefix,
	}
	reports, err := store.List(image)
	if err != nil {
		t.Fatalf("List(): unexpected err: %v", err)
	}
	return reports
}

func writeImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fs.img")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing image: unexpected err: %v", err)
	}
	return path
}

func orphanImage(t *testing.T) []byte {
	f := testsupport.NewFixture(t, &testsupport.DefaultParams)
	f.File(types.InoRoot, "a", 1)
	f.Unlink(types.InoRoot, "a")
	return f.Image().Bytes()
}

func TestRun_CheckRepairCheck(t *testing.T) {
	h := newHarness(t)
	path := writeImage(t, orphanImage(t))

	for _, step := range []struct {
		args   []string
		code   int
		stderr string
	}{{
		args:   []string{path},
		code:   1,
		stderr: types.KindInodeNotFound.Message() + "\n",
	}, {
		args: []string{"-r", path},
	}, {
		args: []string{path},
	}, {
		args: []string{"--repair", path},
	}} {
		code, stderr := h.run(step.args...)
		if code != step.code {
			t.Fatalf(
				"%v: exit code: wanted `%d`; found `%d` (stderr: %s)",
				step.args,
				step.code,
				code,
				stderr,
			)
		}
		if stderr != step.stderr {
			t.Fatalf(
				"%v: stderr: wanted `%s`; found `%s`",
				step.args,
				step.stderr,
				stderr,
			)
		}
	}

	reports := h.reports(t, path)
	wanted := []report.Outcome{
		report.OutcomeViolation,
		report.OutcomeRepaired,
		report.OutcomeClean,
		report.OutcomeClean,
	}
	if len(reports) != len(wanted) {
		t.Fatalf("reports: wanted `%d`; found `%d`", len(wanted), len(reports))
	}
	for i := range wanted {
		if reports[i].Outcome != wanted[i] {
			t.Fatalf(
				"reports[%d].Outcome: wanted `%s`; found `%s`",
				i,
				wanted[i],
				reports[i].Outcome,
			)
		}
	}
	if len(reports[1].Relinked) != 1 || reports[1].Relinked[0] != 3 {
		t.Fatalf("reports[1].Relinked: wanted `[3]`; found `%v`", reports[1].Relinked)
	}
	if reports[0].Mode != report.ModeCheck || reports[1].Mode != report.ModeRepair {
		t.Fatalf(
			"modes: wanted `check`, `repair`; found `%s`, `%s`",
			reports[0].Mode,
			reports[1].Mode,
		)
	}
}

func TestRun_All(t *testing.T) {
	h := newHarness(t)
	path := writeImage(t, orphanImage(t))

	code, stderr := h.run("--all", path)
	if code != 1 {
		t.Fatalf("exit code: wanted `1`; found `%d`", code)
	}
	wanted := types.KindInodeNotFound.Message() + "\n" +
		types.KindBadRefCount.Message() + "\n"
	if stderr != wanted {
		t.Fatalf("stderr: wanted `%s`; found `%s`", wanted, stderr)
	}
}

func TestRun_CorruptImage(t *testing.T) {
	h := newHarness(t)
	path := writeImage(t, make([]byte, 100))

	code, stderr := h.run(path)
	if code != 1 {
		t.Fatalf("exit code: wanted `1`; found `%d`", code)
	}
	if wanted := types.KindCorruptImage.Message() + "\n"; stderr != wanted {
		t.Fatalf("stderr: wanted `%s`; found `%s`", wanted, stderr)
	}
	if reports := h.reports(t, path); len(reports) != 1 ||
		reports[0].Outcome != report.OutcomeError {
		t.Fatalf("reports: wanted one `error` report; found `%v`", reports)
	}
}

func TestRun_Usage(t *testing.T) {
	h := newHarness(t)
	code, stderr := h.run()
	if code != 1 {
		t.Fatalf("exit code: wanted `1`; found `%d`", code)
	}
	if !strings.Contains(stderr, string(UsageErr)) {
		t.Fatalf("stderr: wanted `%s`; found `%s`", UsageErr, stderr)
	}
}

func TestRun_MkfsInspect(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "fs.img")

	if code, stderr := h.run(
		"mkfs",
		"--size", "256",
		"--ninodes", "32",
		path,
	); code != 0 {
		t.Fatalf("mkfs: wanted exit code `0`; found `%d`: %s", code, stderr)
	}
	if code, stderr := h.run(path); code != 0 {
		t.Fatalf("check: wanted exit code `0`; found `%d`: %s", code, stderr)
	}
	if code, stderr := h.run("inspect", path); code != 0 {
		t.Fatalf("inspect: wanted exit code `0`; found `%d`: %s", code, stderr)
	}

	var found inspection
	if err := yaml.Unmarshal(h.stdout.Bytes(), &found); err != nil {
		t.Fatalf("unmarshaling inspection: unexpected err: %v", err)
	}
	wanted := types.Superblock{Size: 256, NBlocks: 249, NInodes: 32}
	if found.Superblock != wanted {
		t.Fatalf(
			"Superblock: wanted `%+v`; found `%+v`",
			wanted,
			found.Superblock,
		)
	}
	if found.Geometry.HeaderBlocks != 7 {
		t.Fatalf(
			"HeaderBlocks: wanted `7`; found `%d`",
			found.Geometry.HeaderBlocks,
		)
	}
	if found.Inodes["Dir"] != 2 || found.Inodes["Free"] != 30 {
		t.Fatalf(
			"Inodes: wanted `2` dirs and `30` free; found `%v`",
			found.Inodes,
		)
	}
	if found.MarkedBlocks != 9 {
		t.Fatalf("MarkedBlocks: wanted `9`; found `%d`", found.MarkedBlocks)
	}
}

func TestRun_MkfsWithoutLostFound(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "fs.img")
	if code, stderr := h.run(
		"mkfs",
		"--size", "256",
		"--ninodes", "32",
		"--lost-found", "-",
		path,
	); code != 0 {
		t.Fatalf("mkfs: wanted exit code `0`; found `%d`: %s", code, stderr)
	}

	code, stderr := h.run("-r", path)
	if code != 1 {
		t.Fatalf("repair: wanted exit code `1`; found `%d`", code)
	}
	if wanted := types.KindNoLostFound.Message() + "\n"; stderr != wanted {
		t.Fatalf("stderr: wanted `%s`; found `%s`", wanted, stderr)
	}
}

func TestRun_ObjectImage(t *testing.T) {
	h := newHarness(t)
	const ref = "s3://images/disk.img.gz"

	if code, stderr := h.run(
		"mkfs",
		"--size", "256",
		"--ninodes", "32",
		ref,
	); code != 0 {
		t.Fatalf("mkfs: wanted exit code `0`; found `%d`: %s", code, stderr)
	}
	data, found := h.objects[[2]string{"images", "disk.img.gz"}]
	if !found {
		t.Fatal("mkfs: wanted object `images/disk.img.gz`; found none")
	}
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		t.Fatalf("mkfs: wanted gzip data; found `% x`", data[:2])
	}

	if code, stderr := h.run(ref); code != 0 {
		t.Fatalf("check: wanted exit code `0`; found `%d`: %s", code, stderr)
	}
	if code, stderr := h.run("reports", "list", ref); code != 0 {
		t.Fatalf("reports list: wanted exit code `0`; found `%d`: %s", code, stderr)
	}
	if !strings.Contains(h.stdout.String(), `"outcome": "clean"`) {
		t.Fatalf("reports list: wanted a clean report; found `%s`", h.stdout.String())
	}
}
