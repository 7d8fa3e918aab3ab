// Package docs renders the command reference of README.md from the registry.
package docs

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"novabot/internal/command"
	"novabot/internal/config"

	"github.com/rs/zerolog/log"
)

// CommandSections renders one markdown section per category, ordered by the
// configured category weights. Owner commands are left out.
func CommandSections(groups map[string][]*command.Descriptor) string {
	categories := make([]string, 0, len(groups))
	for c := range groups {
		if c == "owner" {
			continue
		}
		categories = append(categories, c)
	}
	config.SortCategories(categories)

	var buf bytes.Buffer
	for i, cat := range categories {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "### %s\n\n", config.CategoryTitle(cat))

		cmds := append([]*command.Descriptor(nil), groups[cat]...)
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		for _, d := range cmds {
			fmt.Fprintf(&buf, "- **/%s**%s: %s\n", d.Name, usage(d), d.Description)
		}
	}
	return buf.String()
}

// usage lists a command's options, optional ones in brackets.
func usage(d *command.Descriptor) string {
	if d.Definition == nil || len(d.Definition.Options) == 0 {
		return ""
	}
	parts := make([]string, 0, len(d.Definition.Options))
	for _, o := range d.Definition.Options {
		if o.Required {
			parts = append(parts, "`"+o.Name+"`")
		} else {
			parts = append(parts, "`["+o.Name+"]`")
		}
	}
	return " " + strings.Join(parts, " ")
}

// UpdateReadme executes the template at tmplPath with the command sections
// and writes the result to outPath.
func UpdateReadme(tmplPath, outPath string, groups map[string][]*command.Descriptor) error {
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		return err
	}

	data := struct {
		CommandSections string
	}{
		CommandSections: CommandSections(groups),
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, out.Bytes(), 0o644); err != nil {
		return err
	}

	log.Info().Str("path", outPath).Msg("README updated with current commands")
	return nil
}
