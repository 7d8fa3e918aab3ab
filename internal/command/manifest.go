package command

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"gopkg.in/yaml.v3"
)

// DefaultCooldown applies when a manifest has no cooldown field.
const DefaultCooldown = 3

// ErrLoadFailure marks a command source that cannot be turned into a descriptor.
var ErrLoadFailure = errors.New("command load failure")

var commandName = regexp.MustCompile(`^[-_\p{L}\p{N}]{1,32}$`)

// Manifest is the on-disk form of a command.
type Manifest struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Handler     string           `yaml:"handler"`
	Cooldown    *int             `yaml:"cooldown"`
	GuildOnly   bool             `yaml:"guild_only"`
	Permissions []string         `yaml:"permissions"`
	Options     []ManifestOption `yaml:"options"`
}

type ManifestOption struct {
	Name        string           `yaml:"name"`
	Type        string           `yaml:"type"`
	Description string           `yaml:"description"`
	Required    bool             `yaml:"required"`
	Min         *float64         `yaml:"min"`
	Max         *float64         `yaml:"max"`
	Choices     []ManifestChoice `yaml:"choices"`
}

type ManifestChoice struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

var optionTypes = map[string]discordgo.ApplicationCommandOptionType{
	"string":  discordgo.ApplicationCommandOptionString,
	"integer": discordgo.ApplicationCommandOptionInteger,
	"number":  discordgo.ApplicationCommandOptionNumber,
	"boolean": discordgo.ApplicationCommandOptionBoolean,
	"user":    discordgo.ApplicationCommandOptionUser,
	"channel": discordgo.ApplicationCommandOptionChannel,
	"role":    discordgo.ApplicationCommandOptionRole,
}

var permissionBits = map[string]int64{
	"administrator":    discordgo.PermissionAdministrator,
	"ban_members":      discordgo.PermissionBanMembers,
	"kick_members":     discordgo.PermissionKickMembers,
	"manage_messages":  discordgo.PermissionManageMessages,
	"manage_guild":     discordgo.PermissionManageGuild,
	"moderate_members": discordgo.PermissionModerateMembers,
}

// ReadManifest parses the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// ParseManifest decodes a manifest; unknown fields are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Validate checks the fields every command must expose.
func (m *Manifest) Validate() error {
	var missing []string
	if m.Name == "" {
		missing = append(missing, "name")
	}
	if m.Description == "" {
		missing = append(missing, "description")
	}
	if m.Handler == "" {
		missing = append(missing, "handler")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	if !commandName.MatchString(m.Name) || strings.ToLower(m.Name) != m.Name {
		return fmt.Errorf("invalid command name %q", m.Name)
	}
	if len(m.Description) > 100 {
		return fmt.Errorf("description longer than 100 characters")
	}
	if m.Cooldown != nil && *m.Cooldown < 0 {
		return fmt.Errorf("negative cooldown")
	}
	for _, p := range m.Permissions {
		if _, ok := permissionBits[p]; !ok {
			return fmt.Errorf("unknown permission %q", p)
		}
	}

	seen := make(map[string]bool, len(m.Options))
	optional := false
	for i, o := range m.Options {
		if o.Name == "" || o.Description == "" {
			return fmt.Errorf("option %d: missing name or description", i)
		}
		if seen[o.Name] {
			return fmt.Errorf("option %q declared twice", o.Name)
		}
		seen[o.Name] = true
		if _, ok := optionTypes[o.Type]; !ok {
			return fmt.Errorf("option %q: unknown type %q", o.Name, o.Type)
		}
		// Discord rejects required options after optional ones.
		if o.Required && optional {
			return fmt.Errorf("option %q: required options must come first", o.Name)
		}
		optional = optional || !o.Required
	}
	return nil
}

// CooldownDuration is the manifest cooldown, defaulted.
func (m *Manifest) CooldownDuration() time.Duration {
	seconds := DefaultCooldown
	if m.Cooldown != nil {
		seconds = *m.Cooldown
	}
	return time.Duration(seconds) * time.Second
}

// ApplicationCommand converts the manifest to the Discord definition.
func (m *Manifest) ApplicationCommand() *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Type:        discordgo.ChatApplicationCommand,
		Name:        m.Name,
		Description: m.Description,
	}

	if len(m.Permissions) > 0 {
		var perms int64
		for _, p := range m.Permissions {
			perms |= permissionBits[p]
		}
		cmd.DefaultMemberPermissions = &perms
	}
	if m.GuildOnly {
		dm := false
		cmd.DMPermission = &dm
	}

	for _, o := range m.Options {
		opt := &discordgo.ApplicationCommandOption{
			Type:        optionTypes[o.Type],
			Name:        o.Name,
			Description: o.Description,
			Required:    o.Required,
		}
		if o.Min != nil {
			opt.MinValue = o.Min
		}
		if o.Max != nil {
			opt.MaxValue = *o.Max
		}
		for _, c := range o.Choices {
			opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{
				Name:  c.Name,
				Value: c.Value,
			})
		}
		cmd.Options = append(cmd.Options, opt)
	}
	return cmd
}
