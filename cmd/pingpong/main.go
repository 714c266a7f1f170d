// Command pingpong runs two reliable channels against each other over local
// UDP and prints what the reliability layer is doing.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"

	gamenet "github.com/filipduler/game-networking"
)

const (
	alphaPort = 3030
	betaPort  = 3031
	rounds    = 10
)

func main() {
	cfg := gamenet.Config{
		RetransmissionTimeout: 100 * time.Millisecond,
		TickInterval:          20 * time.Millisecond,
	}

	alpha := gamenet.NewSocket("localhost", betaPort, alphaPort, cfg)
	beta := gamenet.NewSocket("localhost", alphaPort, betaPort, cfg)

	if err := alpha.Open(); err != nil {
		pterm.Fatal.Println("opening alpha socket:", err)
	}
	defer alpha.Close()
	if err := beta.Open(); err != nil {
		pterm.Fatal.Println("opening beta socket:", err)
	}
	defer beta.Close()

	pterm.DefaultHeader.Println("game-networking ping/pong demo")

	go func() {
		buffer := make([]byte, 1400)
		for {
			n, err := beta.Read(buffer)
			if err != nil {
				return
			}
			pterm.Info.Printfln("beta  <- %q", buffer[:n])
			if _, err := beta.Write([]byte("pong " + string(buffer[5:n]))); err != nil {
				pterm.Error.Println("beta write:", err)
				return
			}
		}
	}()

	buffer := make([]byte, 1400)
	for i := 0; i < rounds; i++ {
		message := fmt.Sprintf("ping %d", i)
		if _, err := alpha.Write([]byte(message)); err != nil {
			pterm.Error.Println("alpha write:", err)
			os.Exit(1)
		}
		pterm.Info.Printfln("alpha -> %q", message)

		n, err := alpha.Read(buffer)
		if err != nil {
			pterm.Error.Println("alpha read:", err)
			os.Exit(1)
		}
		pterm.Info.Printfln("alpha <- %q", buffer[:n])
	}

	pterm.Success.Printfln("%d round trips, average RTT %s", rounds, alpha.RTT())
}
