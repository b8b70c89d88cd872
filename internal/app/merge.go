package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"review_ingest/internal/adapters/observability"
	"review_ingest/internal/domain"
)

// Extract bundle member names.
const (
	KeepFile     = "Columns_to_keep.csv"
	Data1File    = "data1.csv"
	Data2File    = "data2.csv"
	EntityFile   = "entitylist.csv"
	MappingFile  = "mapping_data.csv"
	fieldsColumn = "fields"
	entityColumn = "entityId"
)

// Frame is a header plus rows; short rows read as empty cells.
type Frame struct {
	Columns []string
	Rows    [][]string
}

func FrameOf(recs [][]string) Frame {
	if len(recs) == 0 {
		return Frame{}
	}
	return Frame{Columns: recs[0], Rows: recs[1:]}
}

func (f Frame) index(col string) int {
	for i, c := range f.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Concat stacks frames; the header is the union of columns in first-seen order.
func Concat(frames ...Frame) Frame {
	var out Frame
	pos := map[string]int{}
	for _, f := range frames {
		for _, c := range f.Columns {
			if _, ok := pos[c]; !ok {
				pos[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, f := range frames {
		for _, r := range f.Rows {
			row := make([]string, len(out.Columns))
			for i, c := range f.Columns {
				row[pos[c]] = cell(r, i)
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// MergeInput is the loaded extract bundle.
type MergeInput struct {
	Keep     []string          // allowlisted field names, in output order
	Data     Frame             // data1 ++ data2
	Entities []string          // raw entity list cells
	Mapping  map[string]string // fieldId -> fieldName
}

// MergeResult carries the output table and what was reported missing.
type MergeResult struct {
	Header          []string
	Rows            [][]string
	MissingColumns  []string
	MissingEntities []string
	BadEntities     []string
}

// Merge renames each row's fields through the mapping, keeps the allowlisted
// field columns and the rows whose entityId is listed. The output keeps every
// input column, with `fields` showing the renamed dict.
func Merge(in MergeInput) (MergeResult, error) {
	fi := in.Data.index(fieldsColumn)
	if fi < 0 {
		return MergeResult{}, fmt.Errorf("%w: missing %q column", domain.ErrParse, fieldsColumn)
	}
	ei := in.Data.index(entityColumn)
	if ei < 0 {
		return MergeResult{}, fmt.Errorf("%w: missing %q column", domain.ErrParse, entityColumn)
	}

	fields := make([]*Fields, len(in.Data.Rows))
	present := map[string]bool{}
	for i, r := range in.Data.Rows {
		raw, err := ParseFields(cell(r, fi))
		if err != nil {
			return MergeResult{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		renamed := newFields()
		for _, k := range raw.Keys {
			name := k
			if n, ok := in.Mapping[k]; ok {
				name = n
			}
			renamed.Set(name, raw.Values[k])
			present[name] = true
		}
		fields[i] = renamed
	}

	var res MergeResult
	var kept []string
	for _, c := range in.Keep {
		if present[c] {
			kept = append(kept, c)
		} else {
			res.MissingColumns = append(res.MissingColumns, c)
		}
	}

	wanted := map[int64]bool{}
	for _, e := range in.Entities {
		n, err := strconv.ParseInt(strings.TrimSpace(e), 10, 64)
		if err != nil {
			res.BadEntities = append(res.BadEntities, e)
			continue
		}
		wanted[n] = true
	}

	// a leading unnamed column carries each row's position in data1 ++ data2
	res.Header = append([]string{""}, in.Data.Columns...)
	res.Header = append(res.Header, kept...)

	seen := map[string]bool{}
	for i, r := range in.Data.Rows {
		id, err := entityID(cell(r, ei))
		if err != nil {
			return MergeResult{}, fmt.Errorf("%w: row %d: %w", domain.ErrParse, i+1, err)
		}
		if !wanted[id] {
			continue
		}
		seen[strconv.FormatInt(id, 10)] = true
		row := make([]string, 0, len(res.Header))
		row = append(row, strconv.Itoa(i))
		for j := range in.Data.Columns {
			switch j {
			case ei:
				row = append(row, strconv.FormatInt(id, 10))
			case fi:
				row = append(row, Repr(fields[i]))
			default:
				row = append(row, cell(r, j))
			}
		}
		for _, c := range kept {
			row = append(row, FieldString(fields[i].Values[c]))
		}
		res.Rows = append(res.Rows, row)
	}

	for _, e := range in.Entities {
		key := strings.TrimSpace(e)
		if n, err := strconv.ParseInt(key, 10, 64); err == nil {
			key = strconv.FormatInt(n, 10)
		}
		if !seen[key] {
			res.MissingEntities = append(res.MissingEntities, e)
		}
	}
	return res, nil
}

// entityID accepts integer text, including integral floats like "12.0".
func entityID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("entityId %q is not an integer", s)
	}
	return int64(f), nil
}

// ExtractSource unpacks and reads the bundle.
type ExtractSource struct {
	Unzip   func(src, dir string) ([]string, error)
	ReadCSV func(path string) ([][]string, error)
}

// MergeJob names the bundle, where to unpack it and the output file.
type MergeJob struct {
	Archive string
	Dir     string
	Out     string
}

type MergeService struct {
	src   ExtractSource
	write RecordWriter
	log   zerolog.Logger
}

func NewMergeService(src ExtractSource, w RecordWriter, l zerolog.Logger) *MergeService {
	return &MergeService{src: src, write: w, log: l}
}

// Run unpacks, loads, merges and writes. Unzip and load failures are returned;
// a failed write is logged and returned as well.
func (s *MergeService) Run(ctx context.Context, job MergeJob) (MergeResult, error) {
	start := time.Now()
	s.log.Info().Str("archive", job.Archive).Msg("unzipping")
	names, err := s.src.Unzip(job.Archive, job.Dir)
	if err != nil {
		s.log.Error().Err(err).Msg("unzip failed")
		return MergeResult{}, err
	}
	s.log.Info().Strs("files", names).Msg("unzipped")
	if err := ctx.Err(); err != nil {
		return MergeResult{}, err
	}

	in, err := s.load(job.Dir)
	if err != nil {
		s.log.Error().Err(err).Msg("load failed")
		return MergeResult{}, err
	}
	s.log.Info().Int("rows", len(in.Data.Rows)).Msg("extract loaded")

	res, err := Merge(in)
	if err != nil {
		return MergeResult{}, err
	}
	for _, e := range res.BadEntities {
		s.log.Warn().Str("entity", e).Msg("entity id is not an integer; skipped")
	}
	if len(res.MissingColumns) > 0 {
		s.log.Warn().Strs("columns", res.MissingColumns).Int("count", len(res.MissingColumns)).
			Msg("allowlisted columns not found")
	}
	s.log.Info().Int("count", len(res.MissingEntities)).Strs("entities", res.MissingEntities).
		Msg("entity ids without rows")
	observability.ObserveStage("merge", len(res.Rows), time.Since(start))

	if err := s.write(job.Out, res.Header, res.Rows); err != nil {
		s.log.Error().Err(err).Str("path", job.Out).Msg("write merged extract")
		return res, err
	}
	s.log.Info().Str("path", job.Out).Int("rows", len(res.Rows)).Msg("merged extract saved")
	return res, nil
}

func (s *MergeService) load(dir string) (MergeInput, error) {
	read := func(name string) ([][]string, error) {
		return s.src.ReadCSV(filepath.Join(dir, name))
	}
	keep, err := read(KeepFile)
	if err != nil {
		return MergeInput{}, err
	}
	d1, err := read(Data1File)
	if err != nil {
		return MergeInput{}, err
	}
	d2, err := read(Data2File)
	if err != nil {
		return MergeInput{}, err
	}
	ents, err := read(EntityFile)
	if err != nil {
		return MergeInput{}, err
	}
	mapping, err := read(MappingFile)
	if err != nil {
		return MergeInput{}, err
	}

	in := MergeInput{
		Data:    Concat(FrameOf(d1), FrameOf(d2)),
		Mapping: map[string]string{},
	}
	for _, r := range keep {
		if c := strings.TrimSpace(cell(r, 0)); c != "" {
			in.Keep = append(in.Keep, c)
		}
	}
	for _, r := range ents {
		if e := strings.TrimSpace(cell(r, 0)); e != "" {
			in.Entities = append(in.Entities, e)
		}
	}
	mf := FrameOf(mapping)
	idi, namei := mf.index("fieldId"), mf.index("fieldName")
	if idi < 0 || namei < 0 {
		return MergeInput{}, fmt.Errorf("%w: %s needs fieldId and fieldName", domain.ErrParse, MappingFile)
	}
	for _, r := range mf.Rows {
		in.Mapping[strings.TrimSpace(cell(r, idi))] = cell(r, namei)
	}
	return in, nil
}
