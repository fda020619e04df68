package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/robotalks/spectrig/pkg/image"
	"github.com/robotalks/spectrig/pkg/l0/boot"
)

var (
	layout = boot.DefaultLayout
	out    string
)

func init() {
	flag.StringVar(&out, "o", out, "Output file, .hex for Intel HEX. Defaults to the input.")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-o OUT] patch|verify|convert IMAGE\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, in := flag.Arg(0), flag.Arg(1)
	if out == "" {
		out = in
	}
	img, err := image.Load(in, layout.AppBase)
	if err != nil {
		log.Fatalln(err)
	}
	switch cmd {
	case "patch":
		hdr, err := image.Patch(img, layout)
		if err != nil {
			log.Fatalln(err)
		}
		if err = image.Save(out, img); err != nil {
			log.Fatalln(err)
		}
		fmt.Printf("crc 0x%08x length %d\n", hdr.CRC, hdr.Length)
	case "verify":
		hdr, err := image.Verify(img, layout)
		if err != nil {
			log.Fatalln(err)
		}
		fmt.Printf("OK crc 0x%08x length %d\n", hdr.CRC, hdr.Length)
	case "convert":
		if out == in {
			log.Fatalln("-o required")
		}
		if err = image.Save(out, img); err != nil {
			log.Fatalln(err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}
