package main

// This is an example program to demonstrate the usage of the package.
// It connects to the gateway named in the credentials file, prints the circuits
// every 30 seconds and lets you change modes and temperatures with single keys.

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"github.com/WulfgarW/boschhttp"
	"github.com/asaskevich/EventBus"
	"github.com/eiannone/keyboard"
	"gopkg.in/yaml.v3"
)

const LOG_FILE = "boschhttp.log"
const CREDENTIALS_FILE = ".boschhttp-credentials.yaml"
const WITH_LIBRARY_LOGGING = true     // Set this to false if you want no boschhttp logging
const WITH_HTTP_CLIENT_LOGGING = true // Set this to false if you want no http client logging in the boschhttp library

const TEMPERATURE_STEP = 0.5

func readCredentials(filename string) (*boschhttp.CredentialsStruct, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var creds boschhttp.CredentialsStruct
	err = yaml.Unmarshal(b, &creds)
	return &creds, err
}

func readKey(input chan rune) {
	for {
		char, key, err := keyboard.GetSingleKey()
		if err != nil {
			log.Fatal(err)
		}
		switch key {
		case keyboard.KeyArrowUp:
			char = '+'
		case keyboard.KeyArrowDown:
			char = '-'
		}
		input <- char
	}
}

func printKeyBinding() {
	fmt.Println("#############################################")
	fmt.Println("Choose an action:")
	fmt.Println("   1 = Read all circuits and sensors")
	fmt.Println("   c = Select next circuit")
	fmt.Println("   m = Switch selected circuit to its next operation mode")
	fmt.Println("   + = Raise target temperature (or arrow up)")
	fmt.Println("   - = Lower target temperature (or arrow down)")
	fmt.Println("   s = Show schedule of selected circuit")
	fmt.Println("   h = Show key bindings")
	fmt.Println("   q = Quit")
	fmt.Println("#############################################")
	fmt.Println("")
}

// Implementation of log functions for the logger interface of the boschhttp library
// (not necessary, if you don't want to use the logger interface)
type SLogger struct {
	logger *log.Logger
}

func NewSLogLogger(logFile *os.File) *SLogger {
	logger := log.New(logFile, "boschhttplogger: ", log.Lshortfile)
	return &SLogger{logger: logger}
}

func (l *SLogger) Printf(msg string, arg ...any) {
	l.logger.Printf(msg, arg...)
}

func printState(gw *boschhttp.Gateway) {
	fmt.Println("---------------------------------------------------------------------------------------------------------------------")
	for _, s := range gw.Sensors() {
		if s.Valid() {
			fmt.Printf("   %-25s %s %s\n", s.Name()+":", s.Text(), s.Unit())
		}
	}
	for _, c := range gw.Circuits() {
		target, _ := c.TargetTemperature()
		fmt.Printf("   %-5s mode=%-12s target=%.1f°C range=(%.1f..%.1f)", c.Name(), c.CurrentMode(), target, c.MinTemperature(), c.MaxTemperature())
		if t, ok := c.CurrentTemperature(); ok {
			fmt.Printf(" current=%.1f°C", t)
		}
		if !c.Current() {
			fmt.Print(" (stale)")
		}
		fmt.Println("")
	}
	fmt.Println("---------------------------------------------------------------------------------------------------------------------")
}

func printSchedule(c *boschhttp.Circuit) {
	sched := c.Schedule()
	fmt.Printf("   Active program of %s: \"%s\" (device time %s)\n", c.Name(), sched.ActiveProgram(), sched.Time())
	for _, sp := range sched.SwitchPoints() {
		fmt.Printf("      %s %02d:%02d %s\n", sp.DayOfWeek, sp.Time/60, sp.Time%60, sp.Setpoint)
	}
	for id, sp := range sched.Setpoints() {
		fmt.Printf("      level %-8s %.1f°C\n", id, sp.Value)
	}
}

func nextMode(c *boschhttp.Circuit) string {
	allowed := c.AllowedModes()
	if len(allowed) == 0 {
		return ""
	}
	i := slices.Index(allowed, c.CurrentMode())
	return allowed[(i+1)%len(allowed)]
}

// Main program
func main() {
	var logFile *os.File
	var err error
	if LOG_FILE != "" {
		logFile, err = os.OpenFile(LOG_FILE, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Println("Error opening log file. Err", err)
			os.Exit(1)
		}
	} else {
		logFile = os.Stderr
	}

	var (
		logger = log.New(logFile, "boschhttp: ", log.Lshortfile)
		ctx    = context.Background()
	)

	fmt.Println("Sample program to show how to use the boschhttp library functions.")
	fmt.Println("")
	fmt.Println("First step: Reading credential file")
	credentials, err := readCredentials(CREDENTIALS_FILE)
	if err != nil {
		logger.Fatal("readCredentials() ended unsuccessful. Probably no credential file was found. Error:", err)
	}
	if v := os.Getenv("BOSCH_IP"); v != "" {
		credentials.Host = v
	}

	fmt.Println("Second step: Connecting to the gateway and discovering circuits")

	bus := EventBus.New()
	opts := []boschhttp.Option{boschhttp.WithBus(bus)}
	// If http client logging is wanted, you have to provide an http client with logging
	if WITH_HTTP_CLIENT_LOGGING {
		clientlogger := log.New(logFile, "client: ", log.Lshortfile)
		opts = append(opts, boschhttp.WithHttpClient(boschhttp.NewClientWithLog(clientlogger)))
	}
	if WITH_LIBRARY_LOGGING {
		opts = append(opts, boschhttp.WithLogger(NewSLogLogger(logFile)))
	}

	gw, err := boschhttp.NewGateway(credentials.Host, credentials.AccessKey, credentials.Password, opts...)
	if err != nil {
		logger.Fatal(err)
	}

	uuid, err := gw.CheckConnection(ctx)
	if err != nil {
		logger.Fatal(err)
	}
	fmt.Printf("   Connected to gateway %s\n", uuid)

	if err := gw.Initialize(ctx); err != nil {
		logger.Fatal(err)
	}
	if err := gw.UpdateAll(ctx); err != nil {
		logger.Println(err)
	}
	if len(gw.Circuits()) == 0 {
		logger.Fatal("gateway reports no circuits")
	}

	// Events are published by the library after successful writes
	_ = bus.Subscribe(boschhttp.TOPIC_CIRCUIT_MODE, func(id, mode string) {
		fmt.Printf("   Event: %s switched to mode %s\n", id, mode)
	})
	_ = bus.Subscribe(boschhttp.TOPIC_CIRCUIT_TEMPERATURE, func(id string, temp float64) {
		fmt.Printf("   Event: %s target is now %.1f°C\n", id, temp)
	})

	selected := 0

	// Create a channel to read, if a key was pressed
	if err := keyboard.Open(); err != nil {
		panic(err)
	}
	input := make(chan rune, 1)
	go readKey(input)
	printKeyBinding()
	printState(gw)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		circuit := gw.Circuits()[selected]

		select {
		case i := <-input:
			switch i {
			case '1':
				fmt.Println("Reading circuits and sensors")
				if err := gw.UpdateAll(ctx); err != nil {
					fmt.Println(" An error occurred. ", err)
					logger.Println(err)
				}
				printState(gw)
			case 'c':
				selected = (selected + 1) % len(gw.Circuits())
				fmt.Printf("Selected circuit %s\n", gw.Circuits()[selected].Name())
			case 'm':
				mode := nextMode(circuit)
				fmt.Printf("Switching %s to mode \"%s\"\n", circuit.Name(), mode)
				result, err := circuit.SetOperationMode(ctx, mode)
				if err != nil {
					fmt.Println(" An error occurred. ", err)
					logger.Println(err)
				} else if result == "" {
					fmt.Println(" Mode change was rejected, see log")
				}
			case '+', '-':
				target, ok := circuit.TargetTemperature()
				if !ok {
					fmt.Println(" Target temperature not known yet. Press 1 first")
					break
				}
				if i == '+' {
					target += TEMPERATURE_STEP
				} else {
					target -= TEMPERATURE_STEP
				}
				fmt.Printf("Setting target of %s to %.1f°C\n", circuit.Name(), target)
				ok, err := circuit.SetTemperature(ctx, target)
				if err != nil {
					fmt.Println(" An error occurred. ", err)
					logger.Println(err)
				} else if !ok {
					fmt.Println(" Temperature was rejected, see log")
				}
			case 's':
				printSchedule(circuit)
			case 'h':
				printKeyBinding()
			case 'q':
				_ = keyboard.Close()
				os.Exit(0)
			default:
				fmt.Println("You pressed a key without a function. Press h to get help")
			}
		case <-ticker.C:
			if err := gw.UpdateAll(ctx); err != nil {
				logger.Println(err)
			}
			printState(gw)
		}
	}
}
