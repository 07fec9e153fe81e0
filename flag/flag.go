// Package flag defines the command-line flags shared by omniversion binaries.
//
// It is built on top of the pflag library and registers a set of default flags:
//   - `--path`    (string): working directory holding formats.yaml and log files (default: ".")
//   - `--help`    (bool): displays the help message
//   - `--version` (bool): prints the tool version
//   - `--debug`   (bool): enables debug mode (stack traces in errors, debug logging)
//
// Binaries register their own flags with Register before calling Init:
//
//	var grammar string
//
//	func main() {
//		flag.Register("format", &grammar, "Grammar text or catalog name")
//		flag.Init()
//		fmt.Println(flag.Arguments())
//	}
package flag

import (
	"fmt"
	"os"
	"reflect"

	"github.com/spf13/pflag"
)

var (
	// Path is the working directory of the application
	Path string
	// Help indicates whether the help message should be printed
	Help bool
	// Version indicates whether the version information should be printed
	Version bool
	// Debug indicates whether debug mode is enabled
	Debug bool
)

func init() {
	pflag.StringVar(&Path, "path", ".", "Sets the application working directory")
	pflag.BoolVarP(&Help, "help", "h", false, "Prints the help page")
	pflag.BoolVar(&Version, "version", false, "Prints the software version")
	pflag.BoolVar(&Debug, "debug", false, "Enables debug mode")
}

// Init parses the process arguments
// It should be called in the main package of the application
func Init() {
	pflag.Parse()
}

// Parse parses the given arguments instead of os.Args
func Parse(args []string) error {
	return pflag.CommandLine.Parse(args)
}

// PrintHelp prints the help message to standard error output
func PrintHelp() {
	fmt.Fprintln(os.Stderr, "Usage:")
	pflag.PrintDefaults()
}

// Arguments returns the non-flag command-line arguments
func Arguments() []string {
	return pflag.Args()
}

// Register registers a new flag with the given name, value and usage.
// A name of the form "format,f" also registers the shorthand "f".
// It panics if the flag is already registered or if the value is not a non-nil pointer.
func Register(name string, value interface{}, usage string) {
	short := ""
	if len(name) > 2 && name[len(name)-2] == ',' {
		short = name[len(name)-1:]
		name = name[:len(name)-2]
	}

	if pflag.Lookup(name) != nil {
		panic(fmt.Sprintf("flag %s already registered", name))
	}

	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		panic(fmt.Sprintf("flag %s must be a non-nil pointer", name))
	}

	switch v := value.(type) {
	case *string:
		pflag.StringVarP(v, name, short, *v, usage)
	case *bool:
		pflag.BoolVarP(v, name, short, *v, usage)
	case *int:
		pflag.IntVarP(v, name, short, *v, usage)
	case *uint:
		pflag.UintVarP(v, name, short, *v, usage)
	default:
		panic(fmt.Sprintf("unsupported type %T", v))
	}
}
