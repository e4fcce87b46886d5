// Package template renders local config templates against the deployment
// context and uploads them to the host, reloading the owning service only
// when the rendered content actually changed.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/webship/webship/internal/config"
	"github.com/webship/webship/internal/errors"
	"github.com/webship/webship/internal/logger"
	"github.com/webship/webship/internal/remote"
	"github.com/webship/webship/internal/secrets"
)

// Descriptor names one managed template. Paths and the reload command may
// themselves contain placeholders and are expanded before use.
type Descriptor struct {
	Name          string
	LocalPath     string
	RemotePath    string
	ReloadCommand string
}

// Builtin returns the templates every deployment manages: the supervisor
// program entry, the gunicorn config, and the project's local settings.
func Builtin() []Descriptor {
	return []Descriptor{
		{
			Name:          "supervisor",
			LocalPath:     "deploy/supervisor.conf.template",
			RemotePath:    "/home/%(user)s/etc/supervisor/conf.d/%(proj_name)s.conf",
			ReloadCommand: "supervisorctl update gunicorn_%(proj_name)s",
		},
		{
			Name:       "gunicorn",
			LocalPath:  "deploy/gunicorn.conf.py.template",
			RemotePath: "%(proj_path)s/gunicorn.conf.py",
		},
		{
			Name:       "settings",
			LocalPath:  "deploy/local_settings.py.template",
			RemotePath: "%(proj_path)s/%(proj_app)s/local_settings.py",
		},
	}
}

// ByName returns the builtin descriptor with the given name.
func ByName(name string) (Descriptor, error) {
	for _, d := range Builtin() {
		if d.Name == name {
			return d, nil
		}
	}
	return Descriptor{}, errors.New(errors.ErrTemplate,
		"Unknown template '"+name+"'",
		"Known templates: supervisor, gunicorn, settings")
}

// Expand substitutes %(key)s placeholders from ctx. A literal percent is
// written %%. A placeholder with no matching key is a hard error; config
// files must never reach the host half-rendered.
func Expand(s string, ctx map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			b.WriteByte('%')
			i++
			continue
		}
		key, width := placeholderAt(s, i)
		if width == 0 {
			return "", errors.New(errors.ErrTemplate,
				fmt.Sprintf("Stray '%%' at offset %d; write '%%%%' for a literal percent", i),
				"")
		}
		val, ok := ctx[key]
		if !ok {
			return "", errors.New(errors.ErrTemplate,
				"No value for template key '"+key+"'",
				"Add the setting to .webship.yaml")
		}
		b.WriteString(val)
		i += width - 1
	}
	return b.String(), nil
}

// Escape doubles every percent sign that does not start a %(key)s
// placeholder, so raw config text can pass through Expand untouched.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' {
			if _, width := placeholderAt(s, i); width == 0 {
				b.WriteString("%%")
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// placeholderAt reports the key and total width of a %(key)s placeholder
// starting at position i, or ("", 0) when none starts there.
func placeholderAt(s string, i int) (key string, width int) {
	if i+1 >= len(s) || s[i+1] != '(' {
		return "", 0
	}
	j := i + 2
	for j < len(s) && isWordByte(s[j]) {
		j++
	}
	if j == i+2 || j+1 >= len(s) || s[j] != ')' || s[j+1] != 's' {
		return "", 0
	}
	return s[i+2 : j], j + 2 - i
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// normalize strips newlines and surrounding whitespace so the change check
// ignores line-ending and trailing-blank differences.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(s)
}

// Renderer uploads templates to a host. Extra values override the config
// context and accumulate prompted secrets across uploads.
type Renderer struct {
	Sess    *remote.Session
	Cfg     *config.Config
	Secrets secrets.Prompter

	// Root is the project directory local template paths resolve against
	// when they don't exist relative to the working directory.
	Root string

	// Extra holds overrides and remembered prompt answers.
	Extra map[string]string

	log logger.Logger
}

// NewRenderer creates a renderer for the given session and config.
func NewRenderer(sess *remote.Session, cfg *config.Config, prompter secrets.Prompter) *Renderer {
	return &Renderer{
		Sess:    sess,
		Cfg:     cfg,
		Secrets: prompter,
		Extra:   make(map[string]string),
		log:     logger.NewEnvLogger("[template]"),
	}
}

func (r *Renderer) context() map[string]string {
	ctx := r.Cfg.Context()
	for k, v := range r.Extra {
		ctx[k] = v
	}
	return ctx
}

// ExpandString expands placeholders in s against the current context.
func (r *Renderer) ExpandString(s string) (string, error) {
	return Expand(s, r.context())
}

// RemotePath returns the expanded remote path of a descriptor.
func (r *Renderer) RemotePath(d Descriptor) (string, error) {
	return r.ExpandString(d.RemotePath)
}

// Upload renders one template and uploads it if the rendered content
// differs from what the host already has, running the reload command on
// change. Returns whether an upload happened.
func (r *Renderer) Upload(d Descriptor) (bool, error) {
	localPath := r.resolveLocal(d.LocalPath)
	raw, err := os.ReadFile(localPath)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrTemplate,
			"Can't read template "+d.LocalPath,
			"Run from the project directory, or add the missing deploy/ file")
	}

	body := Escape(string(raw))
	if strings.Contains(body, "%(db_pass)s") {
		if err := r.ensureSecret("db_pass", "Database password"); err != nil {
			return false, err
		}
	}

	rendered, err := Expand(body, r.context())
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrTemplate,
			"Template '"+d.Name+"' failed to render", "")
	}
	remotePath, err := r.ExpandString(d.RemotePath)
	if err != nil {
		return false, err
	}

	current := ""
	exists, err := r.Sess.Exists(remotePath)
	if err != nil {
		return false, err
	}
	if exists {
		current, err = r.Sess.ReadFile(remotePath)
		if err != nil {
			return false, err
		}
	}
	if normalize(current) == normalize(rendered) {
		r.log.Debug("template %s unchanged", d.Name)
		return false, nil
	}

	if err := r.Sess.WriteFile(remotePath, []byte(rendered)); err != nil {
		return false, err
	}
	if d.ReloadCommand != "" {
		reload, err := r.ExpandString(d.ReloadCommand)
		if err != nil {
			return false, err
		}
		if _, err := r.Sess.RunChecked(reload); err != nil {
			return false, err
		}
	}
	return true, nil
}

// UploadAll uploads every builtin template.
func (r *Renderer) UploadAll() error {
	for _, d := range Builtin() {
		if _, err := r.Upload(d); err != nil {
			return err
		}
	}
	return nil
}

// ensureSecret prompts for a value once and remembers it for the rest of
// the run.
func (r *Renderer) ensureSecret(key, label string) error {
	if r.context()[key] != "" {
		return nil
	}
	value, err := r.Secrets.Secret(label)
	if err != nil {
		return err
	}
	r.Extra[key] = value
	return nil
}

func (r *Renderer) resolveLocal(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	if _, err := os.Stat(p); err == nil || r.Root == "" {
		return p
	}
	return filepath.Join(r.Root, p)
}
