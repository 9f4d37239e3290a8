// Package main implements genconfig, which renders flagman.default.toml from
// config.ExampleConfig() annotated with config.ConfigDocs.
//
// go generate runs it from internal/config (see the directive in config.go).
// With --check it compares instead of writing and fails when the file is
// stale.
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"tools.zach/dev/flagman/internal/atomicfile"
	"tools.zach/dev/flagman/internal/config"
)

// defaultOut is relative to internal/config, where go generate runs.
const defaultOut = "../../flagman.default.toml"

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "genconfig: %v\n", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var out string
	var check bool
	cmd := &cobra.Command{
		Use:           "genconfig",
		Short:         "Render the annotated default flagman config",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rendered, err := render(config.ExampleConfig())
			if err != nil {
				return err
			}
			if check {
				current, err := os.ReadFile(out)
				if err != nil {
					return err
				}
				if !bytes.Equal(current, []byte(rendered)) {
					return fmt.Errorf("%s is stale; run go generate ./internal/config", out)
				}
				return nil
			}
			if err := atomicfile.Write(out, []byte(rendered), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", defaultOut, "file to write or check")
	cmd.Flags().BoolVar(&check, "check", false, "fail if the file differs instead of writing it")
	return cmd
}

// render encodes cfg as TOML and annotates it with [config.ConfigDocs].
func render(cfg *config.Config) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	a := newAnnotator(config.ConfigDocs)
	a.banner("flagman Configuration")
	for _, line := range strings.Split(raw.String(), "\n") {
		a.line(strings.TrimSpace(line))
	}
	a.closeSection()
	return a.String(), nil
}

// ///////////////////////////////////////////////
// Annotator
// ///////////////////////////////////////////////

// annotator rebuilds encoder output line by line, adding section banners,
// field comments, and commented-out alternatives. Documented keys the
// encoder left out (zero values with omitempty) are added as comments when
// their section closes.
type annotator struct {
	docs    map[string]config.FieldDoc
	out     []string
	section []string
	emitted map[string]bool
}

func newAnnotator(docs map[string]config.FieldDoc) *annotator {
	return &annotator{docs: docs, emitted: map[string]bool{}}
}

func (a *annotator) banner(title string) {
	const rule = "# ///////////////////////////////////////////////"
	a.out = append(a.out, rule, "# "+title, rule, "")
}

// line handles one trimmed line of encoder output.
func (a *annotator) line(l string) {
	switch {
	case l == "":
		// Spacing is ours to manage.
	case strings.HasPrefix(l, "[") && !strings.HasPrefix(l, "[["):
		a.openSection(strings.Trim(l, "[] "), l)
	case strings.HasPrefix(l, "#") || !strings.Contains(l, "="):
		a.out = append(a.out, l)
	default:
		a.field(l)
	}
}

func (a *annotator) openSection(name, header string) {
	a.closeSection()
	a.section = parseSectionPath(name)
	a.out = append(a.out, "", fmt.Sprintf("# ///// %s /////", sectionName(name)), "")
	if doc, ok := a.docs[name]; ok {
		a.comment(doc.Comment)
	}
	a.out = append(a.out, header)
}

func (a *annotator) field(l string) {
	key, _, _ := strings.Cut(l, "=")
	path := a.path(strings.TrimSpace(key))
	a.emitted[path] = true

	doc, ok := a.docs[path]
	if !ok {
		a.out = append(a.out, l)
		return
	}
	a.comment(doc.Comment)
	a.out = append(a.out, l)
	a.alternatives(doc.Alternatives)
}

// closeSection appends the documented keys of the open section that the
// encoder did not emit, sorted by path.
func (a *annotator) closeSection() {
	if len(a.section) == 0 {
		return
	}
	prefix := strings.Join(a.section, ".") + "."

	var omitted []string
	for path := range a.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || a.emitted[path] {
			continue
		}
		omitted = append(omitted, path)
	}
	sort.Strings(omitted)

	for _, path := range omitted {
		doc := a.docs[path]
		a.out = append(a.out, "")
		a.comment(doc.Comment)
		a.alternatives(doc.Alternatives)
		a.emitted[path] = true
	}
}

func (a *annotator) path(key string) string {
	if len(a.section) == 0 {
		return key
	}
	return strings.Join(a.section, ".") + "." + key
}

func (a *annotator) comment(text string) {
	if text == "" {
		return
	}
	for _, cl := range strings.Split(text, "\n") {
		a.out = append(a.out, "# "+cl)
	}
}

func (a *annotator) alternatives(alts []string) {
	for _, alt := range alts {
		a.out = append(a.out, "# "+alt)
	}
}

// String returns the annotated file with a single trailing newline.
func (a *annotator) String() string {
	return strings.TrimRight(strings.Join(a.out, "\n"), "\n") + "\n"
}

// ///////////////////////////////////////////////
// Section Names
// ///////////////////////////////////////////////

// parseSectionPath splits a dotted TOML section header ("log.rotation") into
// its segments.
func parseSectionPath(section string) []string {
	return strings.Split(section, ".")
}

// sectionName capitalizes the last dotted segment of a section header:
// "log.rotation" yields "Rotation".
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if len(last) == 0 {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
