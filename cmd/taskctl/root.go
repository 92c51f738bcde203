package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fastygo/taskboard/client"
	boltRepo "github.com/fastygo/taskboard/repository/bolt"
	taskUC "github.com/fastygo/taskboard/usecase/task"
)

const demoActor = "demo"

type cli struct {
	v   *viper.Viper
	out io.Writer

	closeFn func() error
}

// execute runs one invocation and releases whatever backend it opened.
func execute(out io.Writer, args []string) error {
	c := &cli{v: viper.New(), out: out}
	root := c.rootCmd()
	if args != nil {
		root.SetArgs(args)
	}
	defer c.close()
	return root.Execute()
}

func (c *cli) close() {
	if c.closeFn != nil {
		_ = c.closeFn()
		c.closeFn = nil
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "taskctl",
		Short:        "Manage your taskboard tasks",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.out)

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.taskctl.yaml)")
	flags.String("server", "http://localhost:8080", "taskboard API base URL")
	flags.String("token", "", "access token")
	flags.Bool("demo", false, "work on a local offline board instead of the server")
	flags.String("demo-path", defaultDemoPath(), "file backing the offline board")
	_ = c.v.BindPFlags(flags)

	c.v.SetEnvPrefix("TASKCTL")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		c.registerCmd(),
		c.loginCmd(),
		c.listCmd(),
		c.addCmd(),
		c.statusCmd(),
		c.renameCmd(),
		c.removeCmd(),
	)
	return root
}

func (c *cli) loadConfig() error {
	if path := c.v.GetString("config"); path != "" {
		c.v.SetConfigFile(path)
	} else if home, err := os.UserHomeDir(); err == nil {
		c.v.AddConfigPath(home)
		c.v.SetConfigName(".taskctl")
		c.v.SetConfigType("yaml")
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// configPath is where login stores the token.
func (c *cli) configPath() string {
	if used := c.v.ConfigFileUsed(); used != "" {
		return used
	}
	if path := c.v.GetString("config"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskctl.yaml"
	}
	return filepath.Join(home, ".taskctl.yaml")
}

// saveToken rewrites only the token key of the config file. Flags and env values
// bound to c.v stay out of it.
func (c *cli) saveToken(token string) (string, error) {
	path := c.configPath()

	file := viper.New()
	file.SetConfigFile(path)
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read config: %w", err)
	}
	file.Set("token", token)
	if err := file.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}

	c.v.Set("token", token)
	return path, nil
}

func (c *cli) httpBackend() *client.HTTPBackend {
	return client.NewHTTPBackend(c.v.GetString("server"), c.v.GetString("token"))
}

// backend picks the offline board or the server.
func (c *cli) backend() (client.Backend, error) {
	if c.v.GetBool("demo") {
		db, err := boltRepo.Open(c.v.GetString("demo-path"))
		if err != nil {
			return nil, err
		}
		c.closeFn = db.Close
		uc := taskUC.New(boltRepo.NewTaskStore(db), nil)
		return client.NewLocalBackend(uc, demoActor), nil
	}

	if c.v.GetString("token") == "" {
		return nil, errors.New("not logged in: run `taskctl login` or pass --token")
	}
	return c.httpBackend(), nil
}

func defaultDemoPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "taskctl-demo.db")
	}
	return filepath.Join(home, ".taskctl", "demo.db")
}
