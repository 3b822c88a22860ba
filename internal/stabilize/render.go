package stabilize

import (
	"bytes"
	"fmt"
	"go/token"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"composition-cache/internal/common"
	"composition-cache/internal/reference"
)

// GeneratedFile is one file of the generated package.
type GeneratedFile struct {
	// Filename is relative to the package directory (e.g., "widgets_gadget_fwd.go").
	Filename string
	// Content is the formatted source.
	Content []byte
}

// importSpec represents an import statement.
type importSpec struct {
	Alias string
	Path  string
}

type typeData struct {
	Alias      string
	Forwarders string
	TypeParams string
	TypeArgs   string
	Original   string
	Methods    []methodData
}

type methodData struct {
	Name    string
	Target  string
	Params  string
	Results string
	Body    string
}

type linknameData struct {
	Local   string
	Symbol  string
	Params  string
	Results string
}

type fileData struct {
	PackageName string
	Imports     []importSpec
	Linknames   []linknameData
	Type        typeData
}

type moduleData struct {
	PackageName string
	ImportPath  string
	ID          string
}

var typeTemplate = template.Must(template.New("type").Parse(`// Code generated by compcache stabilize. DO NOT EDIT.

package {{.PackageName}}

{{if .Imports}}
import (
{{range .Imports}}	{{if .Alias}}{{.Alias}} {{end}}"{{.Path}}"
{{end}})
{{end}}
{{range .Linknames}}
//go:linkname {{.Local}} {{.Symbol}}
func {{.Local}}({{.Params}}){{.Results}}
{{end}}
{{with .Type}}
// {{.Alias}} is the stable name of {{.Original}}.
type {{.Alias}}{{.TypeParams}} = {{.Original}}

// {{.Forwarders}} forwards to the members of {{.Original}}.
type {{.Forwarders}}{{.TypeParams}} struct{}
{{range .Methods}}
// {{.Name}} forwards to {{.Target}}.
func ({{$.Type.Forwarders}}{{$.Type.TypeArgs}}) {{.Name}}({{.Params}}){{.Results}} {
	{{.Body}}
}
{{end}}{{end}}
`))

var moduleTemplate = template.Must(template.New("module").Parse(`// Code generated by compcache stabilize. DO NOT EDIT.

// Package {{.PackageName}} gives composable parts stable names and forwarders.
package {{.PackageName}}

// ImportPath is the import path the package was generated for.
const ImportPath = "{{.ImportPath}}"

// ModuleID identifies the stabilization pass that produced the package.
const ModuleID = "{{.ID}}"
`))

// linknameStub lets the compiler accept body-less //go:linkname declarations.
const linknameStub = "// Code generated by compcache stabilize. DO NOT EDIT.\n"

// renderer turns synthetic types into source. Import aliases are assigned
// module-wide in first-use order so every file agrees on them.
type renderer struct {
	module  *Module
	aliases map[string]string // import path -> alias
	used    map[string]struct{}
	imports map[string]importSpec // imports of the current file
}

// Render returns the formatted files of the module. The module must be
// finalized.
func (m *Module) Render() ([]GeneratedFile, error) {
	if !m.Finalized() {
		return nil, ErrNotFinalized
	}

	r := &renderer{
		module:  m,
		aliases: make(map[string]string),
		used:    map[string]struct{}{"recv": {}, "value": {}, "reflect": {}, "unsafe": {}, m.cfg.PackageName: {}},
	}

	files := make([]GeneratedFile, 0, len(m.types)+2)

	var buf bytes.Buffer
	if err := moduleTemplate.Execute(&buf, moduleData{PackageName: m.cfg.PackageName, ImportPath: m.cfg.ImportPath, ID: m.id.String()}); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}

	file, err := m.formatFile(moduleFile, buf.Bytes())
	if err != nil {
		return nil, err
	}

	files = append(files, file)

	linked := false
	for _, t := range m.types {
		data := r.typeFile(t)
		linked = linked || len(data.Linknames) > 0

		buf.Reset()
		if err := typeTemplate.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("executing template: %w", err)
		}

		file, err := m.formatFile(fileName(t.Name), buf.Bytes())
		if err != nil {
			return nil, err
		}

		files = append(files, file)
	}

	if linked {
		files = append(files, GeneratedFile{Filename: linknameFile, Content: []byte(linknameStub)})
	}

	return files, nil
}

func (r *renderer) typeFile(t *SyntheticType) fileData {
	r.imports = make(map[string]importSpec)

	td := typeData{
		Alias:      t.Name,
		Forwarders: t.ForwardersName(),
		Original:   r.typeString(receiver(t, false)),
	}

	if len(t.TypeParams) > 0 {
		params := make([]string, len(t.TypeParams))
		names := make([]string, len(t.TypeParams))
		for i, tp := range t.TypeParams {
			params[i] = tp.Name + " " + r.typeString(tp.Constraint)
			names[i] = tp.Name
		}

		td.TypeParams = "[" + strings.Join(params, ", ") + "]"
		td.TypeArgs = "[" + strings.Join(names, ", ") + "]"
	}

	var links []linknameData
	usesUnsafe := false

	for _, f := range t.Forwarders {
		md := methodData{
			Name:    f.Name,
			Target:  r.targetString(t, f),
			Params:  r.paramList(f),
			Results: r.resultList(f.Results),
		}

		switch f.Access {
		case AccessLinkname:
			local := "link" + t.Name + f.Name
			links = append(links, linknameData{
				Local:   local,
				Symbol:  linknameSymbol(t, f),
				Params:  md.Params,
				Results: md.Results,
			})
			md.Body = r.returnIf(f, local+"("+r.argList(f, 0)+")")
		case AccessReflect:
			usesUnsafe = true
			md.Body = r.reflectBody(f)
		default:
			md.Body = r.directBody(t, f)
		}

		td.Methods = append(td.Methods, md)
	}

	switch {
	case usesUnsafe:
		r.qualifier("reflect")
		r.qualifier("unsafe")
	case len(links) > 0 && r.imports["unsafe"].Path == "":
		r.imports["unsafe"] = importSpec{Alias: "_", Path: "unsafe"}
	}

	data := fileData{
		PackageName: r.module.cfg.PackageName,
		Linknames:   links,
		Type:        td,
	}

	for _, imp := range r.imports {
		data.Imports = append(data.Imports, imp)
	}

	sort.Slice(data.Imports, func(i, j int) bool {
		return data.Imports[i].Path < data.Imports[j].Path
	})

	return data
}

func (r *renderer) directBody(t *SyntheticType, f *Forwarder) string {
	switch f.Kind {
	case ForwardFactory:
		call := r.qualifier(t.decl.Module.ImportPath) + "." + f.Target
		if len(t.TypeParams) > 0 {
			names := make([]string, len(t.TypeParams))
			for i, tp := range t.TypeParams {
				names[i] = tp.Name
			}

			call += "[" + strings.Join(names, ", ") + "]"
		}

		return r.returnIf(f, call+"("+r.argList(f, 0)+")")
	case ForwardMethod:
		return r.returnIf(f, "recv."+f.Target+"("+r.argList(f, 1)+")")
	case ForwardFieldGet:
		return "return recv." + f.Target
	default:
		return "recv." + f.Target + " = value"
	}
}

func (r *renderer) reflectBody(f *Forwarder) string {
	var typ reference.TypeRef
	if f.Kind == ForwardFieldGet {
		typ = f.Results[0]
	} else {
		typ = f.Params[1].Type
	}

	addr := "*(*" + r.typeString(typ) + ")(unsafe.Pointer(reflect.ValueOf(recv).Elem().FieldByName(" +
		strconv.Quote(f.Target) + ").UnsafeAddr()))"

	if f.Kind == ForwardFieldGet {
		return "return " + addr
	}

	return addr + " = value"
}

func (r *renderer) returnIf(f *Forwarder, call string) string {
	if len(f.Results) > 0 {
		return "return " + call
	}

	return call
}

// argList returns the forwarded argument names starting at params[from].
func (r *renderer) argList(f *Forwarder, from int) string {
	names := make([]string, 0, len(f.Params))
	for i, p := range f.Params[from:] {
		name := p.Name
		if f.Variadic && from+i == len(f.Params)-1 {
			name += "..."
		}

		names = append(names, name)
	}

	return strings.Join(names, ", ")
}

func (r *renderer) paramList(f *Forwarder) string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		if f.Variadic && i == len(f.Params)-1 && p.Type.Kind == reference.TypeKindSlice {
			parts[i] = p.Name + " ..." + r.typeString(p.Type.Elem())
			continue
		}

		parts[i] = p.Name + " " + r.typeString(p.Type)
	}

	return strings.Join(parts, ", ")
}

func (r *renderer) resultList(results []reference.TypeRef) string {
	switch len(results) {
	case 0:
		return ""
	case 1:
		return " " + r.typeString(results[0])
	}

	parts := make([]string, len(results))
	for i, t := range results {
		parts[i] = r.typeString(t)
	}

	return " (" + strings.Join(parts, ", ") + ")"
}

func (r *renderer) targetString(t *SyntheticType, f *Forwarder) string {
	owner := r.typeString(receiver(t, false))

	switch f.Kind {
	case ForwardFactory:
		return r.qualifier(t.decl.Module.ImportPath) + "." + f.Target
	case ForwardMethod:
		if f.PointerRecv {
			return "(*" + owner + ")." + f.Target
		}

		return owner + "." + f.Target
	default:
		return owner + "." + f.Target
	}
}

// linknameSymbol returns the linker symbol of an unexported function or method.
func linknameSymbol(t *SyntheticType, f *Forwarder) string {
	pkg := t.decl.Module.ImportPath

	switch {
	case f.Kind == ForwardFactory:
		return pkg + "." + f.Target
	case f.PointerRecv:
		return pkg + ".(*" + t.decl.Name + ")." + f.Target
	default:
		return pkg + "." + t.decl.Name + "." + f.Target
	}
}

// typeString renders t in Go syntax, registering the imports it needs.
func (r *renderer) typeString(t reference.TypeRef) string {
	switch t.Kind {
	case reference.TypeKindNamed:
		var sb strings.Builder
		if q := r.qualifier(t.Module.ImportPath); q != "" {
			sb.WriteString(q)
			sb.WriteByte('.')
		}

		sb.WriteString(t.Name)
		if len(t.Args) > 0 {
			sb.WriteByte('[')
			for i, arg := range t.Args {
				if i > 0 {
					sb.WriteString(", ")
				}

				sb.WriteString(r.typeString(arg))
			}
			sb.WriteByte(']')
		}

		return sb.String()
	case reference.TypeKindPointer:
		return "*" + r.typeString(t.Args[0])
	case reference.TypeKindSlice:
		return "[]" + r.typeString(t.Args[0])
	case reference.TypeKindArray:
		return "[" + strconv.Itoa(t.Len) + "]" + r.typeString(t.Args[0])
	case reference.TypeKindMap:
		return "map[" + r.typeString(t.Args[0]) + "]" + r.typeString(t.Args[1])
	default:
		return t.Name
	}
}

// qualifier returns the alias of importPath in generated code and adds it to
// the current file's imports.
func (r *renderer) qualifier(importPath string) string {
	if importPath == "" || importPath == r.module.cfg.ImportPath {
		return ""
	}

	if importPath == "reflect" || importPath == "unsafe" {
		r.imports[importPath] = importSpec{Path: importPath}
		return importPath
	}

	alias, ok := r.aliases[importPath]
	if !ok {
		name, known := r.module.pkgNames[importPath]
		if !known {
			name = common.PkgAlias(importPath)
		}

		if !token.IsIdentifier(name) {
			name = strings.ToLower(common.Identifier(name))
		}

		alias = uniqueName(r.used, name)
		r.aliases[importPath] = alias
	}

	spec := importSpec{Path: importPath}
	if name, known := r.module.pkgNames[importPath]; !known || name != alias {
		spec.Alias = alias
	}

	r.imports[importPath] = spec

	return alias
}

// Names of the generated files.
const (
	moduleFile   = "module.go"
	linknameFile = "linkname.s"
	fileSuffix   = "_fwd.go"
)

// fileName derives a file name from a synthetic type name ("WidgetsGadget"
// -> "widgets_gadget_fwd.go"). The suffix keeps names clear of build
// constraints such as _linux or _test.
func fileName(name string) string {
	var sb strings.Builder

	prevLower := false
	for _, c := range name {
		if unicode.IsUpper(c) {
			if prevLower {
				sb.WriteByte('_')
			}

			sb.WriteRune(unicode.ToLower(c))
			prevLower = false

			continue
		}

		sb.WriteRune(c)
		prevLower = unicode.IsLower(c) || unicode.IsDigit(c)
	}

	return sb.String() + fileSuffix
}
