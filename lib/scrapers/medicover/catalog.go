package medicover

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

const formModelPath = "/api/MyVisits/SearchFreeSlotsToBook/FormModel"

// ChoiceSet holds, for every filter dimension, the options the portal
// considers valid given the other chosen dimensions. Options are kept
// exactly as returned, including the "any" entries with negative ids.
type ChoiceSet struct {
	Regions         map[int]string `json:"region"`
	Specializations map[int]string `json:"specialization"`
	Clinics         map[int]string `json:"clinic"`
	Doctors         map[int]string `json:"doctor"`
}

// Dimension is one filter dimension of a ChoiceSet.
type Dimension struct {
	Name string
	// Required dimensions must be chosen before slots can be searched.
	Required bool
	Choices  map[int]string
}

func (c ChoiceSet) Dimensions() []Dimension {
	return []Dimension{
		{Name: "region", Required: true, Choices: c.Regions},
		{Name: "specialization", Required: true, Choices: c.Specializations},
		{Name: "clinic", Required: false, Choices: c.Clinics},
		{Name: "doctor", Required: false, Choices: c.Doctors},
	}
}

type choice struct {
	Id   int    `json:"id"`
	Text string `json:"text"`
}

// VisitParameters resolves the options available for each filter dimension
// given a (possibly partial) filter.
func (c *Client) VisitParameters(ctx context.Context, filter Filter) (ChoiceSet, error) {
	ctx, span := tracer.Start(ctx, "client:VisitParameters")
	defer span.End()

	choices, err := c.visitParameters(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportBroken(report_client_visit_parameters, err, filter)
		return ChoiceSet{}, fmt.Errorf("medicover: visit parameters: %w", err)
	}
	return choices, nil
}

func (c *Client) visitParameters(ctx context.Context, filter Filter) (ChoiceSet, error) {
	token, err := c.antiForgeryToken(ctx)
	if err != nil {
		return ChoiceSet{}, err
	}

	res, err := c.ajax(c.Http.R(), token).
		SetContext(ctx).
		SetQueryParams(filter.wire().query()).
		Get(formModelPath)
	if err != nil {
		return ChoiceSet{}, err
	}
	err = checkStatus(res)
	if err != nil {
		return ChoiceSet{}, err
	}

	var model map[string]json.RawMessage
	err = json.Unmarshal(res.Body(), &model)
	if err != nil {
		return ChoiceSet{}, fmt.Errorf("decode form model: %w", err)
	}

	var choices ChoiceSet
	targets := []struct {
		key string
		out *map[int]string
	}{
		{key: "availableRegions", out: &choices.Regions},
		{key: "availableSpecializations", out: &choices.Specializations},
		{key: "availableClinics", out: &choices.Clinics},
		{key: "availableDoctors", out: &choices.Doctors},
	}
	for _, target := range targets {
		raw, ok := model[target.key]
		if !ok {
			return ChoiceSet{}, missingField(target.key)
		}
		var list []choice
		err = json.Unmarshal(raw, &list)
		if err != nil {
			return ChoiceSet{}, fmt.Errorf("decode %s: %w", target.key, err)
		}

		mapped := make(map[int]string, len(list))
		for _, ch := range list {
			mapped[ch.Id] = ch.Text
		}
		*target.out = mapped
	}

	return choices, nil
}
