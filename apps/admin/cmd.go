package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                 - run a goose command (up, down, status...)")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-admin]      - create or update an active user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL                - reset user's password")
	fmt.Fprintln(cli.out, "  import -table TABLE -file FILE [-format F] [-dry-run] - import rows from a CSV or JSON file")
	fmt.Fprintln(cli.out, "  export -table TABLE [-format csv|json] [-out FILE]    - export every row of a table")
	fmt.Fprintln(cli.out, "  genpages                                               - generate the SEO landing pages")
}

// promptPassword reads a password without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return string(pwd), err
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		cmd := newFlagSet("adduser", cli.out)
		uname := cmd.String("username", "", "The user's username.")
		email := cmd.String("email", "", "The user's email.")
		isAdmin := cmd.Bool("admin", false, "Grant every role to the user.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uname == "" && *email == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.addUser(*uname, *email, pwd, *isAdmin)

	case "resetpassword":
		cmd := newFlagSet("resetpassword", cli.out)
		uname := cmd.String("username", "", "The user's username or email. The password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*uname, pwd)

	case "import":
		cmd := newFlagSet("import", cli.out)
		table := cmd.String("table", "", "The table to import into.")
		file := cmd.String("file", "", "The CSV or JSON file.")
		format := cmd.String("format", "", "csv or json. Defaults to the file extension.")
		dryRun := cmd.Bool("dry-run", false, "Only validate the rows.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *table == "" || *file == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.importFile(*table, *file, *format, *dryRun)

	case "export":
		cmd := newFlagSet("export", cli.out)
		table := cmd.String("table", "", "The table to export.")
		format := cmd.String("format", "csv", "csv or json.")
		out := cmd.String("out", "", "The output file. Defaults to stdout.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *table == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.export(*table, *format, *out)

	case "genpages":
		return cli.generatePages()

	default:
		cli.printUsage()
		return errHelp
	}
}
