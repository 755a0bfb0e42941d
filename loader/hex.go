package loader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadHex reads a hex word image from a file.
func LoadHex(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hex image: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := ParseHex(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return prog, nil
}

// ParseHex parses a hex word image.
//
// Each whitespace-separated token is one 32-bit word, with or without a 0x
// prefix. "@addr" moves the load address to the given hex byte address and
// starts a new segment. Text after '#' or "//" is a comment. Execution
// starts at the address of the first word.
func ParseHex(r io.Reader) (*Program, error) {
	prog := &Program{ByteOrder: binary.BigEndian}

	var (
		cur      *Segment
		addr     uint32
		sawWord  bool
		lineNo   int
		scanner  = bufio.NewScanner(r)
		wordBuf  = make([]byte, 4)
		startNew = true
	)

	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())

		for _, tok := range strings.Fields(line) {
			if strings.HasPrefix(tok, "@") {
				v, err := parseHexWord(tok[1:])
				if err != nil {
					return nil, fmt.Errorf("line %d: bad address %q: %w", lineNo, tok, err)
				}
				if v&3 != 0 {
					return nil, fmt.Errorf("line %d: address 0x%x is not word aligned", lineNo, v)
				}
				addr = v
				startNew = true
				continue
			}

			word, err := parseHexWord(tok)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad word %q: %w", lineNo, tok, err)
			}

			if startNew {
				prog.Segments = append(prog.Segments, Segment{
					VirtAddr: addr,
					Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
				})
				cur = &prog.Segments[len(prog.Segments)-1]
				startNew = false
			}

			if !sawWord {
				prog.EntryPoint = addr
				sawWord = true
			}

			binary.BigEndian.PutUint32(wordBuf, word)
			cur.Data = append(cur.Data, wordBuf...)
			cur.MemSize += 4
			addr += 4
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hex image: %w", err)
	}

	if !sawWord {
		return nil, fmt.Errorf("hex image contains no words")
	}

	return prog, nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	return line
}

func parseHexWord(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.ReplaceAll(s, "_", "")

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}

	return uint32(v), nil
}

// WriteHex writes words as a hex image loaded at base.
func WriteHex(w io.Writer, base uint32, words []uint32) error {
	if _, err := fmt.Fprintf(w, "@%08x\n", base); err != nil {
		return fmt.Errorf("failed to write hex image: %w", err)
	}

	for _, word := range words {
		if _, err := fmt.Fprintf(w, "%08x\n", word); err != nil {
			return fmt.Errorf("failed to write hex image: %w", err)
		}
	}

	return nil
}
