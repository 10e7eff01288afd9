package experiment

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/psyexpgo/internal/conditions"
	"github.com/vk/psyexpgo/internal/ctxlog"
	"github.com/vk/psyexpgo/internal/pyexpr"
)

// ErrWrongRoot is returned when a document is not a Builder experiment.
var ErrWrongRoot = errors.New("not a PsychoPy experiment file")

const rootTag = "PsychoPy2experiment"

type xmlParam struct {
	Name    string  `xml:"name,attr"`
	Val     *string `xml:"val,attr"`
	ValType *string `xml:"valType,attr"`
	Updates *string `xml:"updates,attr"`
}

type xmlComponent struct {
	XMLName xml.Name
	Name    string     `xml:"name,attr"`
	Params  []xmlParam `xml:"Param"`
}

type xmlRoutine struct {
	Name       string         `xml:"name,attr"`
	Components []xmlComponent `xml:",any"`
}

type xmlFlowEntry struct {
	XMLName  xml.Name
	LoopType string     `xml:"loopType,attr,omitempty"`
	Name     string     `xml:"name,attr"`
	Params   []xmlParam `xml:"Param"`
}

type xmlExperiment struct {
	XMLName  xml.Name `xml:"PsychoPy2experiment"`
	Version  string   `xml:"version,attr"`
	Encoding string   `xml:"encoding,attr"`
	Settings struct {
		Params []xmlParam `xml:"Param"`
	} `xml:"Settings"`
	Routines struct {
		Routines []xmlRoutine `xml:"Routine"`
	} `xml:"Routines"`
	Flow struct {
		Entries []xmlFlowEntry `xml:",any"`
	} `xml:"Flow"`
}

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toXMLParams(ps *Params) []xmlParam {
	names := ps.SortedNames()
	out := make([]xmlParam, 0, len(names))
	for _, name := range names {
		p := ps.Get(name)
		updates := p.Updates
		if updates == "" {
			updates = "None"
		}
		out = append(out, xmlParam{
			Name:    name,
			Val:     strPtr(p.Val),
			ValType: strPtr(string(p.ValType)),
			Updates: strPtr(updates),
		})
	}
	return out
}

// SaveToXML writes the experiment as a .psyexp document. Params are written
// in name order so that saving is deterministic.
func (e *Experiment) SaveToXML(w io.Writer) error {
	var doc xmlExperiment
	doc.Version = e.PsychopyVersion
	doc.Encoding = "utf-8"
	doc.Settings.Params = toXMLParams(e.Settings.Params())

	for _, r := range e.routines {
		xr := xmlRoutine{Name: r.Name()}
		for _, comp := range r.components {
			xr.Components = append(xr.Components, xmlComponent{
				XMLName: xml.Name{Local: comp.Type()},
				Name:    comp.Name(),
				Params:  toXMLParams(comp.Params()),
			})
		}
		doc.Routines.Routines = append(doc.Routines.Routines, xr)
	}

	for _, entry := range e.Flow.entries {
		xe := xmlFlowEntry{XMLName: xml.Name{Local: entry.EntryType()}, Name: entry.Name()}
		if init, ok := entry.(*LoopInitiator); ok {
			xe.LoopType = init.Loop.Type()
			xe.Params = toXMLParams(init.Loop.Params())
		}
		doc.Flow.Entries = append(doc.Flow.Entries, xe)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode experiment: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	buf.WriteString("\n")
	_, err := decimalEscapes.WriteString(w, buf.String())
	return err
}

// decimalEscapes rewrites the hex character references encoding/xml emits
// into the decimal form PsychoPy writes. A literal "&#xA;" in a value is
// escaped as "&amp;#xA;" and is left alone.
var decimalEscapes = strings.NewReplacer("&#xA;", "&#10;", "&#xD;", "&#13;", "&#x9;", "&#9;")

// SaveFile writes the experiment to path. An unset experiment name is taken
// from the file name.
func (e *Experiment) SaveFile(path string) error {
	if isBlank(e.Settings.Params().Val("expName")) {
		e.SetName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create experiment file: %w", err)
	}
	if err := e.SaveToXML(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	e.Filename = path
	return nil
}

// LoadFile replaces the experiment with the one stored at path.
func (e *Experiment) LoadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open experiment file: %w", err)
	}
	defer f.Close()
	e.Filename = path
	if err := e.LoadFromXML(ctx, f); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadFromXML replaces the experiment with the document read from r.
// Relative conditions files are resolved against the directory of
// Filename.
func (e *Experiment) LoadFromXML(ctx context.Context, r io.Reader) error {
	logger := ctxlog.FromContext(ctx)
	dec := xml.NewDecoder(r)

	var start xml.StartElement
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: document has no root element", ErrWrongRoot)
			}
			return fmt.Errorf("failed to parse experiment: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			start = se
			break
		}
	}
	if start.Name.Local != rootTag {
		return fmt.Errorf("%w: expected root <%s>, found <%s>", ErrWrongRoot, rootTag, start.Name.Local)
	}
	var doc xmlExperiment
	if err := dec.DecodeElement(&doc, &start); err != nil {
		return fmt.Errorf("failed to parse experiment: %w", err)
	}

	e.reset()
	if doc.Version != "" {
		e.PsychopyVersion = doc.Version
	}
	var modified, duplicates []string

	for _, p := range doc.Settings.Params {
		applyXMLParam(logger, e.Settings.Params(), p, doc.Settings.Params)
	}

	byFileName := make(map[string]*Routine)
	for _, xr := range doc.Routines.Routines {
		good := e.NameSpace.MakeValid(xr.Name)
		if good != xr.Name {
			modified = append(modified, xr.Name)
		}
		e.NameSpace.Add(good)
		routine := NewRoutine(good)
		e.routines = append(e.routines, routine)
		byFileName[xr.Name] = routine

		for _, xc := range xr.Components {
			typ := xc.XMLName.Local
			comp := e.NewComponent(typ, xc.Name)
			if _, unknown := comp.(*UnknownComponent); unknown {
				logger.Warn("Unknown component type, keeping its params verbatim.", "routine", good, "component", xc.Name, "type", typ)
			}
			for _, p := range xc.Params {
				applyXMLParam(logger, comp.Params(), p, xc.Params)
			}
			compGood := e.NameSpace.MakeValid(xc.Name)
			if compGood != xc.Name {
				modified = append(modified, xc.Name)
			}
			e.NameSpace.Add(compGood)
			comp.Params().SetVal("name", compGood)
			routine.Add(comp)
		}
	}

	loops := make(map[string]Loop)
	for _, xe := range doc.Flow.Entries {
		switch xe.XMLName.Local {
		case "LoopInitiator":
			good := e.NameSpace.MakeValid(xe.Name)
			if good != xe.Name {
				modified = append(modified, xe.Name)
			}
			loop, err := NewLoop(xe.LoopType, good)
			if err != nil {
				return fmt.Errorf("flow loop %q: %w", xe.Name, err)
			}
			for _, p := range xe.Params {
				applyXMLParam(logger, loop.Params(), p, xe.Params)
			}
			loop.Params().SetVal("name", good)
			e.NameSpace.Add(good)
			duplicates = append(duplicates, e.loadLoopConditions(logger, loop)...)
			loops[xe.Name] = loop
			e.Flow.Append(&LoopInitiator{Loop: loop})

		case "LoopTerminator":
			loop, ok := loops[xe.Name]
			if !ok {
				return fmt.Errorf("flow: end of loop %q before its start", xe.Name)
			}
			e.Flow.Append(&LoopTerminator{Loop: loop})

		case "Routine":
			routine, ok := byFileName[xe.Name]
			if !ok {
				logger.Error("A Routine was on the Flow but could not be found (failed rename?). You may need to re-insert it.", "routine", xe.Name)
				continue
			}
			e.Flow.Append(routine)

		default:
			logger.Warn("Unknown Flow element ignored.", "element", xe.XMLName.Local, "name", xe.Name)
		}
	}

	if err := e.Flow.Validate(); err != nil {
		logger.Error("Flow loops are not properly nested.", "error", err)
	}
	if len(modified) > 0 {
		logger.Warn("Some names were modified to be valid and unique.", "names", modified)
	}
	if len(duplicates) > 0 {
		logger.Warn("Duplicate or invalid condition names found in conditions files.", "names", duplicates)
	}
	logger.Debug("Experiment loaded.", "version", e.PsychopyVersion, "routines", len(e.routines), "flow_entries", e.Flow.Len())
	return nil
}

// loadLoopConditions checks inline conditions and registers the field names
// of the loop's conditions file. It returns field names that could not be
// registered.
func (e *Experiment) loadLoopConditions(logger *slog.Logger, loop Loop) []string {
	ps := loop.Params()
	if inline := strings.TrimSpace(ps.Val("conditions")); inline != "" && inline != "None" {
		if _, err := pyexpr.ParseConditions(inline); err != nil {
			logger.Debug("Could not parse inline conditions, keeping the raw value.", "loop", loop.Name(), "error", err)
		}
	}
	p := ps.Get("conditionsFile")
	if p == nil || p.IsBlank() || p.IsCode() {
		return nil
	}
	path := strings.ReplaceAll(p.Val, `\`, "/")
	if !filepath.IsAbs(path) && e.Filename != "" {
		path = filepath.Join(filepath.Dir(e.Filename), path)
	}
	fields, err := conditions.ImportFields(path)
	if err != nil {
		logger.Warn("Could not read the conditions file for now.", "loop", loop.Name(), "file", p.Val, "error", err)
		return nil
	}
	var dups []string
	for _, f := range fields {
		if e.NameSpace.MakeValid(f) != f {
			dups = append(dups, f)
			continue
		}
		e.NameSpace.Add(f)
	}
	return dups
}
