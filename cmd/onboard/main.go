// Command onboard is an interactive terminal front end for the
// service-center onboarding form. It drives the same controller, locator
// and geocoder as any other client of the API.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"serviceonboard/form"
	"serviceonboard/geo"
)

func main() {
	endpoint := flag.String("endpoint", "http://localhost:8080/api/service-center", "submission endpoint URL")
	flag.Parse()

	httpClient := &http.Client{Timeout: 15 * time.Second}
	controller := form.NewController(
		geo.NewIPLocator(httpClient),
		geo.NewNominatim(httpClient),
		form.NewClient(*endpoint, httpClient),
	)

	fmt.Println("Service center onboarding. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		if err := runCommand(context.Background(), controller, line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func runCommand(ctx context.Context, controller *form.Controller, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "help":
		printHelp()
	case "set":
		field, value, ok := strings.Cut(rest, " ")
		if !ok {
			return fmt.Errorf("usage: set <field> <value>")
		}
		return controller.UpdateField(field, strings.TrimSpace(value))
	case "category":
		if rest == "" {
			return fmt.Errorf("usage: category <%s>", strings.Join(form.CategoryOptions, "|"))
		}
		return controller.ToggleCategory(rest)
	case "image":
		if rest == "" {
			return fmt.Errorf("usage: image <path>")
		}
		return addImage(controller, rest)
	case "rmimage":
		index, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("usage: rmimage <index>")
		}
		return controller.RemoveImage(index)
	case "locate":
		if err := controller.FetchCurrentLocation(ctx); err != nil {
			return err
		}
		record := controller.Record()
		fmt.Printf("location: %s, %s\n", record.Latitude, record.Longitude)
	case "address":
		if err := controller.AutofillAddress(ctx); err != nil {
			return err
		}
		record := controller.Record()
		fmt.Printf("address: %s, %s %s\n", record.City, record.State, record.ZipCode)
	case "show":
		printRecord(controller)
	case "submit":
		resp, err := controller.Submit(ctx)
		if err != nil {
			printErrors(controller.Errors())
			return err
		}
		fmt.Printf("submitted: id=%d createdAt=%s\n", resp.ID, resp.CreatedAt)
		if resp.Message != "" {
			fmt.Println(resp.Message)
		}
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
	return nil
}

func addImage(controller *form.Controller, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return controller.AddImages([]form.Attachment{{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Bytes:    data,
	}})
}

func printRecord(controller *form.Controller) {
	record := controller.Record()
	fmt.Printf("centerName: %s\n", record.CenterName)
	fmt.Printf("phone:      %s\n", record.Phone)
	fmt.Printf("email:      %s\n", record.Email)
	fmt.Printf("city:       %s\n", record.City)
	fmt.Printf("state:      %s\n", record.State)
	fmt.Printf("zipCode:    %s\n", record.ZipCode)
	fmt.Printf("country:    %s\n", record.Country)
	fmt.Printf("location:   %s, %s\n", record.Latitude, record.Longitude)
	fmt.Printf("categories: %s\n", strings.Join(record.Categories, ", "))
	fmt.Printf("images:     %d\n", len(record.Images))
	for i, uri := range controller.Previews() {
		fmt.Printf("  [%d] %s\n", i, uri)
	}
	printErrors(controller.Errors())
}

func printErrors(errors form.FieldErrors) {
	if errors.Empty() {
		return
	}
	fields := []struct{ name, message string }{
		{"centerName", errors.CenterName},
		{"phone", errors.Phone},
		{"email", errors.Email},
		{"city", errors.City},
		{"state", errors.State},
		{"zipCode", errors.ZipCode},
		{"location", errors.Location},
		{"categories", errors.Categories},
		{"images", errors.Images},
	}
	for _, field := range fields {
		if field.message != "" {
			fmt.Printf("  ! %s: %s\n", field.name, field.message)
		}
	}
}

func printHelp() {
	fmt.Print(`commands:
  set <field> <value>   update centerName, phone, email, city, state or zipCode
  category <label>      toggle a service category (Mechanic, AC, Electrician)
  image <path>          attach an image file
  rmimage <index>       remove an attached image
  locate                fetch current coordinates
  address               fill city/state/zip from the coordinates
  show                  print the current record and errors
  submit                validate and submit
  quit                  exit
`)
}
