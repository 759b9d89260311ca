package service_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lula/bundle"
	"lula/logger"
	"lula/profile"
	"lula/service"

	"go.uber.org/goleak"
)

var (
	loger logger.LulaLogger
)

func TestMain(m *testing.M) {
	// setup
	logDir, err := os.MkdirTemp("", "lula-service-test")
	if err != nil {
		panic(err)
	}
	loger = logger.NewLogger(logDir)
	// run tests, verify every service thread is torn down
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)
}

const serviceProfileFmt = `
version: "1"
contraindicators:
  - Delete
modifiers:
  - Move
supported_objects:
  FileObjectType:
    required:
      File_Name: []
    optional:
      Size_In_Bytes: []
    mutually_exclusive: {}
service:
  inbox: %s
  destination: %s
  workers: 2
`

const seedBundle = `{
	"id": "lula:bundle-seed",
	"object_history": [
		{
			"object": {
				"id": "maec:object-1",
				"type": "FileObjectType",
				"properties": {"File_Name": "evil.exe", "Comment": "dropped by stage1"}
			},
			"action_context": [
				{"action_name": "CreateFile", "association_type": "output"}
			]
		},
		{
			"object": {
				"id": "maec:object-2",
				"type": "FileObjectType",
				"properties": {"Size_In_Bytes": 4096}
			},
			"action_context": []
		},
		{
			"object": {
				"id": "maec:object-3",
				"type": "FileObjectType",
				"properties": {"File_Name": "gone.tmp"}
			},
			"action_context": [
				{"action_name": "DeleteFile", "association_type": "output"}
			]
		}
	]
}`

const lateBundle = `{
	"id": "lula:bundle-late",
	"object_history": [
		{
			"object": {
				"id": "maec:object-4",
				"type": "FileObjectType",
				"properties": {"File_Name": "late.exe", "Size_In_Bytes": 512}
			},
			"action_context": [
				{"action_name": "WriteFile", "association_type": "output"}
			]
		}
	]
}`

func newTestService(t *testing.T) (service.Service, string, string) {
	t.Helper()

	inbox := t.TempDir()
	dest := filepath.Join(t.TempDir(), "indicators.ndjson")
	profPath := filepath.Join(t.TempDir(), "profile.yml")
	profText := fmt.Sprintf(serviceProfileFmt, inbox, dest)
	if err := os.WriteFile(profPath, []byte(profText), 0644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	prof, err := profile.NewProfileFile(profPath)
	if err != nil {
		t.Fatalf("NewProfileFile() error = %v, want nil", err)
	}
	svc, err := service.NewService(prof, loger)
	if err != nil {
		t.Fatalf("NewService() error = %v, want nil", err)
	}
	return svc, inbox, dest
}

func waitForLines(t *testing.T, path string, want int) []string {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		raw, err := os.ReadFile(path)
		if err == nil {
			text := strings.TrimSpace(string(raw))
			if text != "" {
				lines := strings.Split(text, "\n")
				if len(lines) >= want {
					return lines
				}
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("destination [%s] did not reach %d lines", path, want)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("file [%s] did not appear", path)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestServiceEndToEnd(t *testing.T) {
	svc, inbox, dest := newTestService(t)

	// a bundle already waiting in the inbox is processed at start
	seedPath := filepath.Join(inbox, "seed.json")
	if err := os.WriteFile(seedPath, []byte(seedBundle), 0644); err != nil {
		t.Fatalf("write seed bundle: %v", err)
	}

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}

	lines := waitForLines(t, dest, 1)
	waitForFile(t, seedPath+".done")

	// a bundle dropped into the running inbox is picked up by the watcher
	latePath := filepath.Join(inbox, "late.json")
	if err := os.WriteFile(latePath, []byte(lateBundle), 0644); err != nil {
		t.Fatalf("write late bundle: %v", err)
	}
	lines = waitForLines(t, dest, 2)
	waitForFile(t, latePath+".done")

	// a bundle that does not decode is retired as .err, service keeps going
	brokenPath := filepath.Join(inbox, "broken.json")
	if err := os.WriteFile(brokenPath, []byte("{{{ not json"), 0644); err != nil {
		t.Fatalf("write broken bundle: %v", err)
	}
	waitForFile(t, brokenPath+".err")

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop() error = %v, want nil", err)
	}

	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2 (one survivor per bundle)", len(lines))
	}
	// first line is the seed survivor with pruned properties
	entry := new(bundle.ObjectHistoryEntry)
	if err := json.Unmarshal([]byte(lines[0]), entry); err != nil {
		t.Fatalf("line[0] is not an entry: %v", err)
	}
	if !strings.HasPrefix(entry.Object.ID, "lula:object-") {
		t.Errorf("object id = %s, want a fresh lula:object id", entry.Object.ID)
	}
	if got := entry.Object.Properties["xsi:type"].Value; got != "FileObjectType" {
		t.Errorf("xsi:type = %v, want FileObjectType", got)
	}
	if got := entry.Object.Properties["File_Name"].Value; got != "evil.exe" {
		t.Errorf("File_Name = %v, want evil.exe", got)
	}
	if _, ok := entry.Object.Properties["Comment"]; ok {
		t.Errorf("Comment survived pruning, want it dropped")
	}
	if len(entry.Actions) != 1 || entry.Actions[0].ActionName != "CreateFile" {
		t.Errorf("action context = %v, want the original CreateFile pair", entry.Actions)
	}
}

func TestServiceFailedInMissingServiceSection(t *testing.T) {
	profPath := filepath.Join(t.TempDir(), "profile.yml")
	profText := "supported_objects:\n  FileObjectType:\n    required:\n      File_Name: []\n"
	if err := os.WriteFile(profPath, []byte(profText), 0644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	prof, err := profile.NewProfileFile(profPath)
	if err != nil {
		t.Fatalf("NewProfileFile() error = %v, want nil", err)
	}

	_, err = service.NewService(prof, loger)
	if err == nil {
		t.Fatalf("NewService() error = nil, want missing service section error")
	}
	t.Logf("NewService() = %v", err)
}

func TestServiceStateGuards(t *testing.T) {
	svc, _, _ := newTestService(t)

	// wait and stop before start are rejected
	if err := svc.Wait(); err == nil {
		t.Errorf("Wait() before Start() error = nil, want state error")
	}
	if err := svc.Stop(); err == nil {
		t.Errorf("Stop() before Start() error = nil, want state error")
	}

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}
	// double start is rejected
	if err := svc.Start(); err == nil {
		t.Errorf("second Start() error = nil, want state error")
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop() error = %v, want nil", err)
	}
	// wait after stop returns immediately
	if err := svc.Wait(); err != nil {
		t.Errorf("Wait() after Stop() error = %v, want nil", err)
	}
	// double stop is rejected
	if err := svc.Stop(); err == nil {
		t.Errorf("second Stop() error = nil, want state error")
	}
}
