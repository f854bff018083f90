package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/subject"
	"github.com/trezcool/masomo-curriculum/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	db         *sqlx.DB
	usrSvc     *user.Service
	subjectSvc *subject.Service
	validate   *validator.Validate
	logger     core.Logger
	mailSvc    core.EmailService
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                       - run goose COMMAND on the database")
	fmt.Fprintln(cli.out, "  adduser -name NAME -username USERNAME -email EMAIL [-roles]  - create a user; the password is prompted")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL                       - reset user's password")
	fmt.Fprintln(cli.out, "  addsubject -name NAME -code CODE                             - create a subject")
	fmt.Fprintln(cli.out, "  addtopic -subject ID -title TITLE [-description]             - append a topic to a subject")
	fmt.Fprintln(cli.out, "  topics -subject ID                                           - list a subject's topics in order")
	fmt.Fprintln(cli.out, "  movetopic -subject ID -topic ID -position N [-remote]        - move a topic to a 1-based position")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRoles := addUserCmd.String("roles", "", "Comma separated roles, e.g. "+user.RoleTeacher)

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	addSubjectCmd := flag.NewFlagSet("addsubject", flag.ContinueOnError)
	addSubjectName := addSubjectCmd.String("name", "", "The subject's name.")
	addSubjectCode := addSubjectCmd.String("code", "", "The subject's code, e.g. MATH-101.")

	addTopicCmd := flag.NewFlagSet("addtopic", flag.ContinueOnError)
	addTopicSubject := addTopicCmd.String("subject", "", "The subject's ID.")
	addTopicTitle := addTopicCmd.String("title", "", "The topic's title.")
	addTopicDesc := addTopicCmd.String("description", "", "The topic's description.")

	topicsCmd := flag.NewFlagSet("topics", flag.ContinueOnError)
	topicsSubject := topicsCmd.String("subject", "", "The subject's ID.")

	moveTopicCmd := flag.NewFlagSet("movetopic", flag.ContinueOnError)
	moveTopicSubject := moveTopicCmd.String("subject", "", "The subject's ID.")
	moveTopicID := moveTopicCmd.String("topic", "", "The topic's ID.")
	moveTopicPosition := moveTopicCmd.Int("position", 0, "The new 1-based position.")
	moveTopicRemote := moveTopicCmd.Bool("remote", false, "Save through the API (api.baseURL, api.token) instead of the database.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, addSubjectCmd, addTopicCmd, topicsCmd, moveTopicCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || (*addUserUname == "" && *addUserEmail == "") {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, pwd, splitRoles(*addUserRoles))

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "addsubject":
		if err := addSubjectCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSubjectName == "" || *addSubjectCode == "" {
			addSubjectCmd.Usage()
			return errHelp
		}
		return cli.addSubject(*addSubjectName, *addSubjectCode)

	case "addtopic":
		if err := addTopicCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTopicSubject == "" || *addTopicTitle == "" {
			addTopicCmd.Usage()
			return errHelp
		}
		return cli.addTopic(*addTopicSubject, *addTopicTitle, *addTopicDesc)

	case "topics":
		if err := topicsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *topicsSubject == "" {
			topicsCmd.Usage()
			return errHelp
		}
		return cli.listTopics(*topicsSubject)

	case "movetopic":
		if err := moveTopicCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *moveTopicSubject == "" || *moveTopicID == "" || *moveTopicPosition < 1 {
			moveTopicCmd.Usage()
			return errHelp
		}
		return cli.moveTopic(*moveTopicSubject, *moveTopicID, *moveTopicPosition, *moveTopicRemote)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func splitRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = core.CleanString(r, true /* lower */); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
