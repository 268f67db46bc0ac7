// Command bsdfdump decodes a BSDF file and prints its value tree, or,
// with -hex, dumps a raw byte range for inspecting a file a normal
// decode can't get through.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/scigolib/bsdf"
)

func main() {
	hexMode := flag.Bool("hex", false, "dump raw bytes instead of the decoded value tree")
	offset := flag.Int64("offset", 0, "offset in file to start a hex dump from")
	length := flag.Int("length", 128, "number of bytes to hex-dump")
	streaming := flag.Bool("streaming", false, "surface a trailing list stream instead of materializing it")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: bsdfdump [flags] <file.bsdf>")
		fmt.Println("Flags:")
		flag.PrintDefaults()
		return
	}

	file := args[0]
	f, err := os.Open(file)
	if err != nil {
		log.Fatalf("failed to open file: %v", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("failed to close file: %v", err)
		}
	}()

	if *hexMode {
		hexDump(f, *offset, *length)
		return
	}

	var opts []bsdf.Option
	if *streaming {
		opts = append(opts, bsdf.WithStreaming(true))
	}
	v, err := bsdf.Load(f, opts...)
	if err != nil {
		log.Fatalf("decoding %s: %v", file, err)
	}
	printValue(v, 0)
}

func hexDump(f *os.File, offset int64, length int) {
	fileInfo, err := f.Stat()
	if err != nil {
		log.Fatalf("failed to get file info: %v", err)
	}
	fileSize := fileInfo.Size()

	if offset < 0 || offset >= fileSize {
		log.Fatalf("invalid offset: %d (file size: %d)", offset, fileSize)
	}
	if length < 1 {
		log.Fatalf("invalid length: %d", length)
	}

	remaining := fileSize - offset
	readLength := int64(length)
	if readLength > remaining {
		readLength = remaining
		fmt.Printf("Warning: requested length %d exceeds available bytes (%d). Dumping %d bytes.\n",
			length, remaining, readLength)
	}

	buf := make([]byte, readLength)
	n, err := f.ReadAt(buf, offset)
	if err != nil {
		log.Printf("read error: %v (read %d of %d bytes)", err, n, readLength)
	}

	fmt.Printf("Dumping %d bytes at offset 0x%x (%d) of size %d bytes:\n", n, offset, offset, fileSize)
	for i := 0; i < n; i += 16 {
		end := i + 16
		if end > n {
			end = n
		}
		chunk := buf[i:end]

		fmt.Printf("%08x: ", offset+int64(i))
		for j := 0; j < 16; j++ {
			if j < len(chunk) {
				fmt.Printf("%02x ", chunk[j])
			} else {
				fmt.Print("   ")
			}
			if j == 7 {
				fmt.Print(" ")
			}
		}
		fmt.Print(" |")
		for _, b := range chunk {
			if b >= 32 && b <= 126 {
				fmt.Printf("%c", b)
			} else {
				fmt.Print(".")
			}
		}
		fmt.Println("|")
	}
}

func printValue(v bsdf.Value, depth int) {
	indent := strings.Repeat("  ", depth)
	switch x := v.(type) {
	case nil:
		fmt.Printf("%snull\n", indent)
	case bool:
		fmt.Printf("%sbool: %v\n", indent, x)
	case int64:
		fmt.Printf("%sint: %d\n", indent, x)
	case float64:
		fmt.Printf("%sfloat: %v\n", indent, x)
	case string:
		fmt.Printf("%sstring: %q\n", indent, x)
	case []bsdf.Value:
		fmt.Printf("%slist (%d elements)\n", indent, len(x))
		for _, el := range x {
			printValue(el, depth+1)
		}
	case bsdf.Map:
		fmt.Printf("%smap (%d entries)\n", indent, x.Len())
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			fmt.Printf("%s  %s:\n", indent, k)
			printValue(val, depth+2)
		}
	case bsdf.Blob:
		fmt.Printf("%sblob (%d bytes)\n", indent, len(x.Data))
	case *bsdf.LazyBlob:
		fmt.Printf("%slazy blob\n", indent)
	case *bsdf.StreamReader:
		fmt.Printf("%sstream:\n", indent)
		for {
			el, done, err := x.Next()
			if err != nil {
				fmt.Printf("%s  error: %v\n", indent, err)
				break
			}
			if done {
				break
			}
			printValue(el, depth+1)
		}
	default:
		fmt.Printf("%s%T: %v\n", indent, x, x)
	}
}
