package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/akilisha/funzo/core/lesson"
	"github.com/akilisha/funzo/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
	lsnSvc  *lesson.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
	fmt.Println("  addtutor -username USERNAME -email EMAIL - add or promote a tutor account")
	fmt.Println("  loadlessons -file PATH - load lesson content from a JSON fixture")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addTutorCmd := flag.NewFlagSet("addtutor", flag.ExitOnError)
	addTutorUname := addTutorCmd.String("username", "", "The tutor's username. The password will be prompted next.")
	addTutorEmail := addTutorCmd.String("email", "", "The tutor's email address.")

	loadLessonsCmd := flag.NewFlagSet("loadlessons", flag.ExitOnError)
	loadLessonsFile := loadLessonsCmd.String("file", "assets/fixtures/lessons.json", "Path to the lessons JSON fixture.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addtutor":
		if err := addTutorCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTutorUname == "" || *addTutorEmail == "" {
			addTutorCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addTutorCmd.Usage()
			return errHelp
		}
		return cli.addTutor(*addTutorUname, *addTutorEmail, string(pwd))
	case "loadlessons":
		if err := loadLessonsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loadLessonsFile == "" {
			loadLessonsCmd.Usage()
			return errHelp
		}
		return cli.loadLessons(*loadLessonsFile)
	default:
		cli.printUsage()
		return errHelp
	}
}
