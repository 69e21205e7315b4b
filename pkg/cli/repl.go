// pkg/cli/repl.go
// Package cli implements the interactive garner shell: dot-commands
// over the heap files in one data directory.
package cli

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"garner/pkg/buffer"
	"garner/pkg/dbio"
	"garner/pkg/heap"
	"garner/pkg/page"
)

// REPL reads dot-commands and executes them against heap files. Every
// command opens the cursors it needs and closes them before returning,
// so no page stays pinned between commands.
type REPL struct {
	fm *dbio.Manager
	bm *buffer.Manager

	rd     lineReader
	out    io.Writer
	errOut io.Writer

	// file is the current heap file, set by .open.
	file string
}

// NewREPL creates an interactive REPL reading from the terminal.
func NewREPL(fm *dbio.Manager, bm *buffer.Manager, out, errOut io.Writer) (*REPL, error) {
	rd, err := newTerminalReader()
	if err != nil {
		return nil, err
	}
	r := newREPL(fm, bm, out, errOut)
	r.rd = rd
	return r, nil
}

// NewREPLWithInput creates a REPL reading from a plain reader. Useful
// for tests and piped scripts.
func NewREPLWithInput(fm *dbio.Manager, bm *buffer.Manager, in io.Reader, out, errOut io.Writer) *REPL {
	r := newREPL(fm, bm, out, errOut)
	r.rd = newScriptReader(in, nil)
	return r
}

func newREPL(fm *dbio.Manager, bm *buffer.Manager, out, errOut io.Writer) *REPL {
	if errOut == nil {
		errOut = out
	}
	return &REPL{fm: fm, bm: bm, out: out, errOut: errOut}
}

// Close flushes outstanding dirty frames and releases the input reader.
func (r *REPL) Close() error {
	return errors.Join(r.bm.FlushAll(), r.rd.Close())
}

// Run reads and executes commands until .exit or EOF.
func (r *REPL) Run() {
	fmt.Fprintln(r.out, "garner heap file shell")
	fmt.Fprintln(r.out, "Enter \".help\" for usage hints.")

	for {
		prompt := "garner> "
		if r.file != "" {
			prompt = fmt.Sprintf("garner(%s)> ", r.file)
		}
		line, err := r.rd.ReadLine(prompt)
		if err != nil {
			fmt.Fprintln(r.out)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ".exit" || line == ".quit" {
			return
		}
		if err := r.Execute(line); err != nil {
			fmt.Fprintf(r.errOut, "error: %v\n", err)
		}
	}
}

// Execute runs a single command line.
func (r *REPL) Execute(line string) error {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case ".help":
		r.printHelp()
		return nil
	case ".create":
		return r.create(rest)
	case ".destroy":
		return r.destroy(rest)
	case ".open":
		return r.openFile(rest)
	case ".insert":
		return r.insert([]byte(rest))
	case ".inserti":
		return r.insertInt(rest)
	case ".get":
		return r.get(rest)
	case ".scan":
		return r.scan(rest, false)
	case ".delete":
		return r.scan(rest, true)
	case ".count":
		return r.count()
	case ".stats":
		return r.stats()
	default:
		return fmt.Errorf("unknown command %q, try .help", cmd)
	}
}

func (r *REPL) printHelp() {
	fmt.Fprint(r.out, `.create <file>                   create a heap file
.destroy <file>                  destroy a heap file (no open handles)
.open <file>                     select the current heap file
.insert <text>                   insert the text as one record
.inserti <n> [text]              insert a 4-byte integer, then text
.get <page> <slot>               fetch one record by RID
.scan [<type> <off> <op> <val>]  scan records, optionally filtered
.delete <type> <off> <op> <val>  delete the records a scan matches
.count                           number of records in the file
.stats                           header summary for the file
.exit                            leave the shell

types: int, float, string   ops: lt, le, eq, ge, gt, ne
`)
}

func (r *REPL) create(name string) error {
	if name == "" {
		return errors.New("usage: .create <file>")
	}
	if err := heap.Create(r.fm, r.bm, name); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "created %s\n", name)
	return nil
}

func (r *REPL) destroy(name string) error {
	if name == "" {
		return errors.New("usage: .destroy <file>")
	}
	if err := heap.Destroy(r.fm, name); err != nil {
		return err
	}
	if r.file == name {
		r.file = ""
	}
	fmt.Fprintf(r.out, "destroyed %s\n", name)
	return nil
}

func (r *REPL) openFile(name string) error {
	if name == "" {
		return errors.New("usage: .open <file>")
	}
	hf, err := heap.Open(r.fm, r.bm, name)
	if err != nil {
		return err
	}
	if err := hf.Close(); err != nil {
		return err
	}
	r.file = name
	return nil
}

func (r *REPL) needFile() error {
	if r.file == "" {
		return errors.New("no file selected, use .open <file>")
	}
	return nil
}

func (r *REPL) insert(rec []byte) error {
	if err := r.needFile(); err != nil {
		return err
	}
	ins, err := heap.OpenInsert(r.fm, r.bm, r.file)
	if err != nil {
		return err
	}
	defer ins.Close()

	rid, err := ins.InsertRecord(rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "inserted (%d,%d)\n", rid.PageNo, rid.SlotNo)
	return nil
}

func (r *REPL) insertInt(rest string) error {
	numText, tail, _ := strings.Cut(rest, " ")
	n, err := strconv.ParseInt(numText, 10, 32)
	if err != nil {
		return fmt.Errorf("usage: .inserti <n> [text]: %w", err)
	}
	rec := make([]byte, 4, 4+len(tail))
	binary.LittleEndian.PutUint32(rec, uint32(int32(n)))
	rec = append(rec, tail...)
	return r.insert(rec)
}

func (r *REPL) get(rest string) error {
	if err := r.needFile(); err != nil {
		return err
	}
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return errors.New("usage: .get <page> <slot>")
	}
	pageNo, err1 := strconv.ParseInt(fields[0], 10, 32)
	slotNo, err2 := strconv.ParseInt(fields[1], 10, 16)
	if err1 != nil || err2 != nil {
		return errors.New("usage: .get <page> <slot>")
	}

	hf, err := heap.Open(r.fm, r.bm, r.file)
	if err != nil {
		return err
	}
	defer hf.Close()

	rec, err := hf.GetRecord(page.RID{PageNo: int32(pageNo), SlotNo: int16(slotNo)})
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "(%d,%d) %d bytes: %q\n", pageNo, slotNo, len(rec), rec)
	return nil
}

// scan runs a scan over the current file, printing matches; with del
// set it deletes them instead.
func (r *REPL) scan(rest string, del bool) error {
	if err := r.needFile(); err != nil {
		return err
	}

	var offset, length int
	var typ heap.Datatype
	var op heap.Operator
	var filter []byte
	if rest != "" {
		var err error
		offset, length, typ, filter, op, err = parsePredicate(rest)
		if err != nil {
			return err
		}
	} else if del {
		return errors.New("usage: .delete <type> <off> <op> <val>")
	}

	sc, err := heap.OpenScan(r.fm, r.bm, r.file)
	if err != nil {
		return err
	}
	defer sc.Close()

	if err := sc.StartScan(offset, length, typ, filter, op); err != nil {
		return err
	}

	n := 0
	for {
		rid, err := sc.Next()
		if errors.Is(err, heap.ErrEndOfFile) {
			break
		}
		if err != nil {
			return err
		}
		n++
		if del {
			if err := sc.DeleteRecord(); err != nil {
				return err
			}
			continue
		}
		rec, err := sc.Record()
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "(%d,%d) %d bytes: %q\n", rid.PageNo, rid.SlotNo, len(rec), rec)
	}
	if del {
		fmt.Fprintf(r.out, "deleted %d records\n", n)
	} else {
		fmt.Fprintf(r.out, "%d records\n", n)
	}
	return nil
}

func (r *REPL) count() error {
	if err := r.needFile(); err != nil {
		return err
	}
	hf, err := heap.Open(r.fm, r.bm, r.file)
	if err != nil {
		return err
	}
	defer hf.Close()
	fmt.Fprintf(r.out, "%d\n", hf.RecordCount())
	return nil
}

func (r *REPL) stats() error {
	if err := r.needFile(); err != nil {
		return err
	}
	hf, err := heap.Open(r.fm, r.bm, r.file)
	if err != nil {
		return err
	}
	defer hf.Close()
	fmt.Fprintf(r.out, "file: %s\npages: %d\nrecords: %d\n",
		hf.Name(), hf.PageCount(), hf.RecordCount())
	return nil
}

// parsePredicate turns "<type> <off> <op> <val>" into scan parameters.
func parsePredicate(rest string) (offset, length int, typ heap.Datatype, filter []byte, op heap.Operator, err error) {
	fields := strings.Fields(rest)
	if len(fields) != 4 {
		err = errors.New("predicate is <type> <off> <op> <val>")
		return
	}

	switch fields[0] {
	case "int":
		typ = heap.TypeInt
	case "float":
		typ = heap.TypeFloat
	case "string":
		typ = heap.TypeString
	default:
		err = fmt.Errorf("unknown type %q", fields[0])
		return
	}

	offset, err = strconv.Atoi(fields[1])
	if err != nil {
		err = fmt.Errorf("bad offset %q", fields[1])
		return
	}

	switch fields[2] {
	case "lt":
		op = heap.OpLT
	case "le":
		op = heap.OpLTE
	case "eq":
		op = heap.OpEQ
	case "ge":
		op = heap.OpGTE
	case "gt":
		op = heap.OpGT
	case "ne":
		op = heap.OpNE
	default:
		err = fmt.Errorf("unknown operator %q", fields[2])
		return
	}

	switch typ {
	case heap.TypeInt:
		var n int64
		n, err = strconv.ParseInt(fields[3], 10, 32)
		if err != nil {
			err = fmt.Errorf("bad int value %q", fields[3])
			return
		}
		filter = make([]byte, 4)
		binary.LittleEndian.PutUint32(filter, uint32(int32(n)))
		length = 4
	case heap.TypeFloat:
		var f float64
		f, err = strconv.ParseFloat(fields[3], 32)
		if err != nil {
			err = fmt.Errorf("bad float value %q", fields[3])
			return
		}
		filter = make([]byte, 4)
		binary.LittleEndian.PutUint32(filter, math.Float32bits(float32(f)))
		length = 4
	case heap.TypeString:
		filter = []byte(fields[3])
		length = len(filter)
	}
	return
}
