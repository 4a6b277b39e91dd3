package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SnapshotDir is the directory the reverse path diffs against, written
// beside the artifact tree on every generation.
const SnapshotDir = "_snapshot"

// SnapshotMeta describes a snapshot's provenance.
type SnapshotMeta struct {
	GeneratedAt      string `json:"generated_at"`
	ProcessorName    string `json:"processor_name"`
	PlatformVersion  string `json:"platform_version"`
	ConfigDir        string `json:"config_dir"`
	GeneratorVersion string `json:"generator_version"`
	SnapshotType     string `json:"snapshot_type"` // "initial" | "epf_export"
	HasFormXML       int    `json:"has_form_xml"`
}

// moduleSnapshot is one handler module captured into the snapshot.
type moduleSnapshot struct {
	Owner  string // form name, or "ObjectModule"
	Source string
}

// buildSnapshot assembles the snapshot artifacts: the pristine root
// descriptor, the concatenation of every handler module, per-form Form.xml
// copies and the metadata record. Paths are relative to the snapshot
// directory.
func buildSnapshot(meta SnapshotMeta, rootXML string, modules []moduleSnapshot, formXML map[string]string, formOrder []string) ([]Artifact, error) {
	var artifacts []Artifact

	artifacts = append(artifacts, TextArtifact("original.xml", rootXML, true))

	var handlers strings.Builder
	for _, m := range modules {
		fmt.Fprintf(&handlers, "// ===== %s =====\n", m.Owner)
		handlers.WriteString(strings.TrimRight(m.Source, "\n"))
		handlers.WriteString("\n\n")
	}
	artifacts = append(artifacts, TextArtifact(
		"original_handlers."+ModuleExtension, handlers.String(), false))

	meta.HasFormXML = len(formXML)
	for _, name := range formOrder {
		xml, ok := formXML[name]
		if !ok {
			continue
		}
		artifacts = append(artifacts, TextArtifact(
			meta.ProcessorName+"/Forms/"+name+"/Ext/Form.xml", xml, true))
	}

	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("generate: marshal snapshot metadata: %w", err)
	}
	artifacts = append(artifacts, Artifact{
		Path:    "metadata.json",
		Content: append(payload, '\n'),
		Binary:  true, // no BOM on the metadata record
	})
	return artifacts, nil
}

// snapshotFromExport rebuilds the snapshot artifacts from a designer
// export: <dir>/<name>.xml plus the <dir>/<name>/ content tree. A missing
// root descriptor reports nil artifacts so the caller keeps the initial
// snapshot.
func snapshotFromExport(dir string, meta SnapshotMeta) ([]Artifact, error) {
	rootXML, err := readExportText(filepath.Join(dir, meta.ProcessorName+".xml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("generate: read exported descriptor: %w", err)
	}

	var modules []moduleSnapshot
	procDir := filepath.Join(dir, meta.ProcessorName)
	if object, err := readExportText(filepath.Join(procDir, "Ext", "ObjectModule."+ModuleExtension)); err == nil {
		modules = append(modules, moduleSnapshot{Owner: "ObjectModule", Source: object})
	}

	formXML := map[string]string{}
	var formOrder []string
	matches, err := filepath.Glob(filepath.Join(procDir, "Forms", "*", "Ext", "Form.xml"))
	if err != nil {
		return nil, fmt.Errorf("generate: scan exported forms: %w", err)
	}
	for _, path := range matches {
		name := filepath.Base(filepath.Dir(filepath.Dir(path)))
		xml, err := readExportText(path)
		if err != nil {
			return nil, fmt.Errorf("generate: read exported form %s: %w", name, err)
		}
		formXML[name] = xml
		formOrder = append(formOrder, name)
		if module, err := readExportText(filepath.Join(procDir, "Forms", name, "Ext", "Form", "Module."+ModuleExtension)); err == nil {
			modules = append(modules, moduleSnapshot{Owner: name, Source: module})
		}
	}
	return buildSnapshot(meta, rootXML, modules, formXML, formOrder)
}

func readExportText(path string) (string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	payload = bytes.TrimPrefix(payload, utf8BOM)
	return strings.ReplaceAll(string(payload), "\r\n", "\n"), nil
}

// newSnapshotMeta stamps a metadata record for a fresh generation.
func newSnapshotMeta(now time.Time, processorName, platformVersion, configDir, version string) SnapshotMeta {
	return SnapshotMeta{
		GeneratedAt:      now.UTC().Format(time.RFC3339),
		ProcessorName:    processorName,
		PlatformVersion:  platformVersion,
		ConfigDir:        configDir,
		GeneratorVersion: version,
		SnapshotType:     "initial",
	}
}

// ReadSnapshotMeta parses a snapshot metadata record.
func ReadSnapshotMeta(payload []byte) (*SnapshotMeta, error) {
	var meta SnapshotMeta
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("generate: parse snapshot metadata: %w", err)
	}
	return &meta, nil
}
