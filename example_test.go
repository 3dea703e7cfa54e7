package livemd_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/livemd"
	"github.com/aretw0/livemd/pkg/domain"
)

func ExampleEngine_Execute() {
	eng, err := livemd.New()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	id, err := eng.Open(ctx, "example")
	if err != nil {
		log.Fatal(err)
	}

	doc := "```state\n$coins = 10\n```\n" +
		"```set\ninc $coins 5\n```\n" +
		"You have $coins coins.\n"

	res, err := eng.Execute(ctx, id, doc, domain.ExecuteOptions{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(res.Rendered)
	// Output:
	// You have 15 coins.
}

func ExampleEngine_SubmitForm() {
	eng, err := livemd.New()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	id, _ := eng.Open(ctx, "signup")

	doc := "```form Sign up\nname: text \"Your name\" required\n```\n" +
		"Welcome, $name!\n"

	res, err := eng.Execute(ctx, id, doc, domain.ExecuteOptions{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Status, res.PendingForm.Form.Fields[0].Label)

	res, err = eng.SubmitForm(ctx, id, res.PendingForm.BlockID, map[string]any{"name": "Fred"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(res.Rendered)
	// Output:
	// paused Your name
	// Welcome, Fred!
}
